package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"
)

// OrderDigest is the slice of a committed order that notifications need.
type OrderDigest struct {
	OrderNumber string
	Total       float64
	ItemCount   int
}

// CustomerDigest identifies the buyer for the operator-facing message.
type CustomerDigest struct {
	Name  string
	Email string
	Guest bool
}

// Notifier sends the two post-commit messages. Both are best-effort; a
// failure is logged by the dispatcher and never reaches the checkout caller.
type Notifier interface {
	SendOrderConfirmation(ctx context.Context, recipient string, order OrderDigest) error
	SendOperatorNotification(ctx context.Context, order OrderDigest, customer CustomerDigest) error
}

// mailMessage is the transactional mail API request body.
type mailMessage struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

// mailResponse is the mail API response body.
type mailResponse struct {
	MessageID string `json:"message_id"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

// NotificationService sends order mail through an HTTP JSON mail API.
type NotificationService struct {
	APIURL        string
	APIKey        string
	FromAddress   string
	OperatorEmail string
	Client        *http.Client
}

// NewNotificationService creates a new notification service
func NewNotificationService(apiURL, apiKey, fromAddress, operatorEmail string) *NotificationService {
	return &NotificationService{
		APIURL:        apiURL,
		APIKey:        apiKey,
		FromAddress:   fromAddress,
		OperatorEmail: operatorEmail,
		Client:        &http.Client{Timeout: 30 * time.Second},
	}
}

// SendOrderConfirmation sends the customer-facing confirmation message.
func (ns *NotificationService) SendOrderConfirmation(ctx context.Context, recipient string, order OrderDigest) error {
	subject := fmt.Sprintf("Order %s confirmed", order.OrderNumber)
	body := fmt.Sprintf(
		"Thank you for your order!\n\nOrder number: %s\nItems: %d\nTotal: %.2f EUR\n\nWe will let you know as soon as it ships.",
		order.OrderNumber, order.ItemCount, order.Total,
	)
	return ns.sendMail(ctx, recipient, subject, body)
}

// SendOperatorNotification tells the shop operator about a new order.
func (ns *NotificationService) SendOperatorNotification(ctx context.Context, order OrderDigest, customer CustomerDigest) error {
	kind := "customer"
	if customer.Guest {
		kind = "guest"
	}
	subject := fmt.Sprintf("New order %s", order.OrderNumber)
	body := fmt.Sprintf(
		"New order placed.\n\nOrder number: %s\nItems: %d\nTotal: %.2f EUR\nBuyer: %s <%s> (%s)",
		order.OrderNumber, order.ItemCount, order.Total,
		customer.Name, customer.Email, kind,
	)
	return ns.sendMail(ctx, ns.OperatorEmail, subject, body)
}

func (ns *NotificationService) sendMail(ctx context.Context, to, subject, body string) error {
	if to == "" {
		return fmt.Errorf("recipient is empty")
	}

	message := mailMessage{
		From:    ns.FromAddress,
		To:      to,
		Subject: subject,
		Text:    body,
	}

	jsonData, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal mail message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", ns.APIURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if ns.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+ns.APIKey)
	}

	resp, err := ns.Client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("mail API returned status %d: %s", resp.StatusCode, string(responseBody))
	}

	var mailResp mailResponse
	if len(responseBody) > 0 {
		if err := json.Unmarshal(responseBody, &mailResp); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
		if mailResp.Status == "error" {
			return fmt.Errorf("mail API rejected message: %s", mailResp.Error)
		}
	}

	return nil
}

// DispatchOrderNotifications sends the customer confirmation and the
// operator notification concurrently and independently. This is the failure
// isolation boundary of checkout: either send failing is logged and dropped,
// and neither blocks or cancels the other.
func DispatchOrderNotifications(ctx context.Context, notifier Notifier, order OrderDigest, customer CustomerDigest) {
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		if err := notifier.SendOrderConfirmation(ctx, customer.Email, order); err != nil {
			log.Printf("Failed to send order confirmation for %s: %v", order.OrderNumber, err)
		}
	}()

	go func() {
		defer wg.Done()
		if err := notifier.SendOperatorNotification(ctx, order, customer); err != nil {
			log.Printf("Failed to send operator notification for %s: %v", order.OrderNumber, err)
		}
	}()

	wg.Wait()
}
