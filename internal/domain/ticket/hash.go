package ticket

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// NewHash returns a 64 hex char ticket hash. It mixes 122 random bits with
// the owner, the ticket type and the mint time, so hashes are not guessable
// from ticket ids.
func NewHash(userID, ticketTypeID int64) (string, error) {
	h, err := blake2b.New256(nil)
	if err != nil {
		return "", fmt.Errorf("init ticket hash: %w", err)
	}

	nonce, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("ticket hash entropy: %w", err)
	}

	var buf [24]byte
	binary.BigEndian.PutUint64(buf[0:8], uint64(userID))
	binary.BigEndian.PutUint64(buf[8:16], uint64(ticketTypeID))
	binary.BigEndian.PutUint64(buf[16:24], uint64(time.Now().UnixNano()))

	h.Write(nonce[:])
	h.Write(buf[:])
	return hex.EncodeToString(h.Sum(nil)), nil
}
