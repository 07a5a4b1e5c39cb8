package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/knoguchi/campusrag/internal/llm"
	"github.com/knoguchi/campusrag/internal/repository"
)

// GenericFallbackMessage is returned when no contact is registered for the category
const GenericFallbackMessage = "죄송하지만, 질문에 대한 정확한 정보를 찾을 수 없습니다. " +
	"학생지원센터(대표 민원 창구)로 문의해 주시면 담당 부서를 안내해 드립니다."

// FallbackResolver routes unanswerable questions to a department contact
type FallbackResolver struct {
	classifier CategoryClassifier
	contacts   repository.ContactStore
	logger     *slog.Logger
}

// NewFallbackResolver creates a resolver; a nil classifier files every question under "other"
func NewFallbackResolver(classifier CategoryClassifier, contacts repository.ContactStore, logger *slog.Logger) *FallbackResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackResolver{classifier: classifier, contacts: contacts, logger: logger}
}

// Resolve classifies the question and looks up the contact for its category.
// degraded reports that a backend failed while resolving.
func (f *FallbackResolver) Resolve(ctx context.Context, question string, tenantID uuid.UUID) (resp Response, degraded bool) {
	category := f.classify(ctx, question)
	label := string(category)

	resp = Response{
		Answer:          GenericFallbackMessage,
		Sources:         []Source{},
		ConfidenceScore: 0,
		SearchStrategy:  StrategyFallback,
		FallbackUsed:    true,
		Category:        &label,
	}

	if f.contacts == nil {
		return resp, false
	}
	contact, err := f.contacts.GetDefaultContact(ctx, tenantID, label)
	switch {
	case err == nil && contact != nil && contact.Department != "":
		resp.Answer = contactMessage(contact)
	case err == nil || errors.Is(err, repository.ErrNotFound):
		f.logger.Debug("no default contact", "tenant_id", tenantID, "category", label)
	default:
		f.logger.Warn("default contact lookup failed", "tenant_id", tenantID, "category", label, "error", err)
		degraded = true
	}
	return resp, degraded
}

func (f *FallbackResolver) classify(ctx context.Context, question string) llm.Category {
	if f.classifier == nil {
		return llm.CategoryOther
	}
	category, err := f.classifier.Classify(ctx, question)
	if err != nil {
		f.logger.Warn("category classification failed", "error", err)
		return llm.CategoryOther
	}
	if parsed, ok := llm.ParseCategory(string(category)); ok {
		return parsed
	}
	return llm.CategoryOther
}

func contactMessage(c *repository.DefaultContact) string {
	var b strings.Builder
	b.WriteString("죄송하지만, 질문에 대한 정확한 정보를 찾을 수 없습니다.\n\n")
	b.WriteString("아래 부서로 문의하시면 정확한 안내를 받으실 수 있습니다.\n\n")
	fmt.Fprintf(&b, "**%s**", c.Department)
	if info := strings.TrimSpace(c.ContactInfo); info != "" {
		fmt.Fprintf(&b, "\n- 연락처: %s", info)
	}
	return b.String()
}
