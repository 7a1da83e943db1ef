package ledger

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// Product match score thresholds. They guide the UI; the engine only auto-links
// suggestions at or above AutoSuggestScore.
const (
	AutoSuggestScore = 70
	NoMatchScore     = 50
)

// ProductMatch is one candidate returned by a ProductMatcher
type ProductMatch struct {
	ProductRef string `json:"product_ref"`
	Name       string `json:"name"`
	Score      int    `json:"score"` // 0-100
}

// IsAutoSuggested returns true if the match is strong enough to link without review
func (m ProductMatch) IsAutoSuggested() bool {
	return m.Score >= AutoSuggestScore
}

// IsNoMatch returns true if the match is too weak to be shown as a suggestion
func (m ProductMatch) IsNoMatch() bool {
	return m.Score < NoMatchScore
}

// ProductMatcher scores catalog products against a free-text description
type ProductMatcher interface {
	FindSimilar(ctx context.Context, description string, limit int) ([]ProductMatch, error)
}

// CategoryCatalog resolves category IDs
type CategoryCatalog interface {
	CategoryExists(ctx context.Context, id uuid.UUID) (bool, error)
}

// SupplierCatalog resolves supplier IDs
type SupplierCatalog interface {
	SupplierExists(ctx context.Context, id uuid.UUID) (bool, error)
}

// PartnerSplitConfigProvider returns a read-only snapshot of partner split
// configs active on asOf
type PartnerSplitConfigProvider interface {
	Snapshot(ctx context.Context, asOf time.Time) ([]PartnerSplitConfig, error)
}

// AttachmentStore keeps entry attachments and hands back opaque references
type AttachmentStore interface {
	// Put stores the body under key and returns the reference to record on the entry
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error)

	// URL returns a URL the client can fetch the attachment from
	URL(ctx context.Context, ref string) (string, error)
}
