package payments

import (
	"fmt"
	"net/url"
	"strings"
)

type Service struct {
	baseURL string
}

func NewService(baseURL string) *Service {
	return &Service{baseURL: strings.TrimRight(baseURL, "/")}
}

// PaymentURL строит ссылку на оплату инвойса.
// В тестовом варианте это просто наш же HTTP-сервер.
func (s *Service) PaymentURL(invoiceID string) string {
	return fmt.Sprintf("%s/payments/pay?invoice=%s", s.baseURL, url.QueryEscape(invoiceID))
}
