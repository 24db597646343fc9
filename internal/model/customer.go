package model

import "time"

// Customer - клиент со своим пространством кодов и одной целевой формой
type Customer struct {
	ID        string    `json:"id" gorm:"primaryKey;size:64"`
	FormID    string    `json:"formId" gorm:"column:form_id;not null"`
	CreatedAt time.Time `json:"createdAt"`

	Redirects []Redirect `json:"redirects,omitempty" gorm:"foreignKey:CustomerID;constraint:OnDelete:CASCADE"`
}

// Redirect - один реферальный код клиента
type Redirect struct {
	Code             string    `json:"code" gorm:"primaryKey;size:64"`
	CustomerID       string    `json:"customerId" gorm:"primaryKey;column:customer_id;size:64"`
	AmID             string    `json:"am_id" gorm:"column:am_id;not null"`
	Empfehlungsgeber string    `json:"empfehlungsgeber" gorm:"not null"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
	Count            int64     `json:"count" gorm:"not null;default:0"`
}

// CustomerSummary - клиент в списке, без вложенных редиректов
type CustomerSummary struct {
	ID            string    `json:"id"`
	FormID        string    `json:"formId"`
	CreatedAt     time.Time `json:"createdAt"`
	RedirectCount int64     `json:"redirectCount"`
}

// Stats - сводные счетчики для админского дашборда
type Stats struct {
	Customers int64 `json:"customers"`
	Redirects int64 `json:"redirects"`
	Visits    int64 `json:"visits"`
}

// Resolution - результат разрешения публичной ссылки
type Resolution struct {
	TargetURL string `json:"targetUrl"`
	Code      string `json:"code"`
}

type CreateCustomerRequest struct {
	ID     string `json:"id"`
	FormID string `json:"formId"`
}

type UpdateCustomerRequest struct {
	FormID string `json:"formId"`
}

type CreateRedirectRequest struct {
	CustomerID       string `json:"customerId"`
	Code             string `json:"code"`
	AmID             string `json:"am_id"`
	Empfehlungsgeber string `json:"empfehlungsgeber"`
}
