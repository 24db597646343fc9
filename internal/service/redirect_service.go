package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	apperrors "github.com/sefrin/empfehlungslink/internal/errors"
	"github.com/sefrin/empfehlungslink/internal/model"
	"github.com/sefrin/empfehlungslink/internal/repository"
)

// RedirectService разрешает публичную ссылку (kundenname, code)
// в целевой URL внешней формы
type RedirectService struct {
	store       repository.Store
	formBaseURL string
}

func NewRedirectService(store repository.Store, formBaseURL string) *RedirectService {
	return &RedirectService{
		store:       store,
		formBaseURL: strings.TrimRight(formBaseURL, "/"),
	}
}

// Resolve находит клиента и редирект и строит целевой URL.
// Учет визита сюда не входит: счетчик не имеет права ломать редирект.
func (s *RedirectService) Resolve(ctx context.Context, customerID, code string) (*model.Resolution, error) {
	if customerID == "" || code == "" {
		return nil, apperrors.NewValidationError("path", "customer and code are required")
	}

	customer, err := s.store.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	redirect, err := s.store.GetRedirect(ctx, customerID, code)
	if errors.Is(err, apperrors.ErrRedirectNotFound) {
		// Исторические ссылки ведут по am_id, новые по code.
		// Вторичный индекс над той же записью, не второй источник истины.
		redirect, err = s.store.FindRedirectByAmID(ctx, customerID, code)
	}
	if err != nil {
		return nil, err
	}

	target := fmt.Sprintf("%s/%s?am_id=%s&empfehlungsgeber=%s",
		s.formBaseURL,
		url.PathEscape(customer.FormID),
		queryEscape(redirect.AmID),
		queryEscape(redirect.Empfehlungsgeber),
	)

	return &model.Resolution{
		TargetURL: target,
		Code:      redirect.Code,
	}, nil
}

// RecordVisit атомарно увеличивает счетчик визитов
func (s *RedirectService) RecordVisit(ctx context.Context, customerID, code string) error {
	return s.store.IncrementVisit(ctx, customerID, code)
}

// queryEscape кодирует значение как encodeURIComponent:
// пробел превращается в %20, а не в '+'
func queryEscape(v string) string {
	return strings.ReplaceAll(url.QueryEscape(v), "+", "%20")
}
