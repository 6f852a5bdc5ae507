package email

// Email templates in HTML format

// BaseTemplate is the base layout for all emails
const BaseTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <style>
        body {
            margin: 0;
            padding: 0;
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
            background-color: #0f0f0f;
            color: #ffffff;
        }
        .container {
            max-width: 600px;
            margin: 0 auto;
            padding: 40px 20px;
        }
        .card {
            background: #1a1a1a;
            border-radius: 12px;
            padding: 32px;
            border: 1px solid #2a2a2a;
        }
        .logo {
            text-align: center;
            margin-bottom: 24px;
        }
        .logo h1 {
            font-size: 28px;
            background: linear-gradient(135deg, #a855f7 0%, #6366f1 100%);
            -webkit-background-clip: text;
            -webkit-text-fill-color: transparent;
            margin: 0;
        }
        h2 {
            color: #ffffff;
            font-size: 24px;
            margin: 0 0 16px;
        }
        p {
            color: #888888;
            font-size: 16px;
            line-height: 1.6;
            margin: 0 0 16px;
        }
        .btn {
            display: inline-block;
            background: linear-gradient(135deg, #a855f7 0%, #6366f1 100%);
            color: #ffffff !important;
            text-decoration: none;
            padding: 14px 28px;
            border-radius: 8px;
            font-weight: 600;
            font-size: 16px;
            margin: 16px 0;
        }
        .footer {
            text-align: center;
            margin-top: 32px;
            color: #666666;
            font-size: 12px;
        }
        .highlight {
            color: #a855f7;
            font-weight: 600;
        }
        .info-box {
            background: #252525;
            border-radius: 8px;
            padding: 16px;
            margin: 16px 0;
        }
    </style>
</head>
<body>
    <div class="container">
        <div class="card">
            <div class="logo">
                <h1>TicketBox</h1>
            </div>
            {{.Content}}
        </div>
        <div class="footer">
            <p>© 2026 TicketBox. All rights reserved.</p>
            <p>You received this email because you bought tickets on TicketBox.</p>
        </div>
    </div>
</body>
</html>
`

// TicketsTemplate is the purchase confirmation with one QR per ticket
const TicketsTemplate = `
<h2>Your tickets are ready</h2>
<p>Hi{{if .Name}} <span class="highlight">{{.Name}}</span>{{end}}, thanks for your purchase.</p>
<div class="info-box">
    <p><strong>Order:</strong> {{.OrderNumber}}</p>
    <p><strong>Tickets:</strong> {{len .Tickets}}</p>
</div>
{{range .Tickets}}
<div class="info-box">
    <p><strong>{{.EventName}}</strong>{{if .TicketType}} · {{.TicketType}}{{end}}</p>
    <p>Ticket #{{.TicketID}} · {{.Price}}</p>
    <img src="{{.QRCode}}" alt="Ticket QR code" width="200" height="200">
    <p style="font-size:12px">{{.Hash}}</p>
</div>
{{end}}
<p>Show the QR code at the entrance. Each code can be scanned once.</p>
`
