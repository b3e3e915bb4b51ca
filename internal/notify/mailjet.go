package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"time"

	"storefront/internal/models"
	"storefront/internal/util"

	"github.com/mailjet/mailjet-apiv3-go/v4"
	"go.uber.org/zap"
)

type sendFunc func(messages *mailjet.MessagesV31) (*mailjet.ResultsV31, error)

// MailjetNotifier sends order confirmations through the Mailjet v3.1 send API.
type MailjetNotifier struct {
	send        sendFunc
	senderEmail string
	senderName  string
	currency    string
	logger      *zap.Logger
}

// NewMailjetNotifier creates a notifier sending from senderEmail.
func NewMailjetNotifier(publicKey, privateKey, senderEmail, senderName, currency string) *MailjetNotifier {
	client := mailjet.NewMailjetClient(publicKey, privateKey)
	return &MailjetNotifier{
		send: func(messages *mailjet.MessagesV31) (*mailjet.ResultsV31, error) {
			return client.SendMailV31(messages)
		},
		senderEmail: senderEmail,
		senderName:  senderName,
		currency:    currency,
		logger:      util.GetLogger(),
	}
}

// OrderConfirmed e-mails the order summary to the buyer.
func (n *MailjetNotifier) OrderConfirmed(ctx context.Context, order *models.Order) error {
	if order.UserEmail == "" {
		return errors.New("mailjet: order has no recipient")
	}

	messages := &mailjet.MessagesV31{Info: []mailjet.InfoMessagesV31{{
		From:     &mailjet.RecipientV31{Email: n.senderEmail, Name: n.senderName},
		To:       &mailjet.RecipientsV31{{Email: order.UserEmail, Name: "Customer"}},
		Subject:  "Order Confirmation",
		TextPart: "Thank you for your purchase!",
		HTMLPart: n.htmlBody(order),
		CustomID: order.ID,
	}}}

	start := time.Now()
	res, err := n.send(messages)
	util.ProviderLatency.WithLabelValues("mailjet", "send").Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("mailjet: send confirmation: %w", err)
	}

	status := ""
	if res != nil && len(res.ResultsV31) > 0 {
		status = res.ResultsV31[0].Status
	}
	n.logger.Info("Order confirmation sent",
		zap.String("order_id", order.ID),
		zap.String("status", status),
	)
	return nil
}

func (n *MailjetNotifier) htmlBody(order *models.Order) string {
	return fmt.Sprintf(
		"<h1>Thank you for your order!</h1>"+
			"<p>Order ID: <strong>%s</strong></p>"+
			"<p>Total: %s %s</p>"+
			"<p>Shipping to: %s, %s</p>",
		html.EscapeString(order.ID),
		formatTotal(order.TotalAmount),
		html.EscapeString(n.currency),
		html.EscapeString(order.ShippingAddress.AddressLine1),
		html.EscapeString(order.ShippingAddress.City),
	)
}
