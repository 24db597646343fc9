package cache

import "fmt"

// KeyPrefix - префиксы для разных типов ключей
type KeyPrefix string

const (
	PrefixCustomer  KeyPrefix = "customer" // customer:<id>
	PrefixRedirect  KeyPrefix = "redirect" // redirect:<customerID>:<code>
	PrefixRateLimit KeyPrefix = "rate"     // rate:<clientIP>
)

// KeyBuilder - построитель ключей кэша
type KeyBuilder struct {
	namespace string
}

func NewKeyBuilder(namespace string) *KeyBuilder {
	return &KeyBuilder{namespace: namespace}
}

func (k *KeyBuilder) Build(prefix KeyPrefix, parts ...string) string {
	key := string(prefix)

	if k.namespace != "" {
		key = k.namespace + ":" + key
	}

	for _, part := range parts {
		key += ":" + part
	}

	return key
}

// Customer создает ключ для клиента
func (k *KeyBuilder) Customer(id string) string {
	return k.Build(PrefixCustomer, id)
}

// Redirect создает ключ для редиректа внутри клиента
func (k *KeyBuilder) Redirect(customerID, code string) string {
	return k.Build(PrefixRedirect, customerID, code)
}

// RateLimit создает ключ для rate limiting
func (k *KeyBuilder) RateLimit(clientIP string) string {
	return k.Build(PrefixRateLimit, clientIP)
}

// Pattern возвращает паттерн для поиска ключей
func (k *KeyBuilder) Pattern(prefix KeyPrefix) string {
	if k.namespace != "" {
		return fmt.Sprintf("%s:%s:*", k.namespace, prefix)
	}
	return fmt.Sprintf("%s:*", prefix)
}

// DefaultKeyBuilder - построитель ключей по умолчанию
var DefaultKeyBuilder = NewKeyBuilder("")
