package persistence

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/clinic-ledger/backend/internal/domain/ledger"
	"github.com/clinic-ledger/backend/internal/infrastructure/persistence/models"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"
)

// minTokenLength drops short connectives ("de", "e", "a") from matching
const minTokenLength = 3

// GormProductMatcher scores catalog products against a description by
// comparing accent-insensitive word tokens (Dice coefficient, 0-100).
type GormProductMatcher struct {
	db *gorm.DB
}

// NewGormProductMatcher creates a new GormProductMatcher
func NewGormProductMatcher(db *gorm.DB) *GormProductMatcher {
	return &GormProductMatcher{db: db}
}

// FindSimilar returns up to limit products ordered by descending score
func (m *GormProductMatcher) FindSimilar(ctx context.Context, description string, limit int) ([]ledger.ProductMatch, error) {
	tokens := Tokenize(description)
	if len(tokens) == 0 {
		return []ledger.ProductMatch{}, nil
	}

	query := m.db.WithContext(ctx).Where("active = ?", true)
	cond := m.db.Where("normalized_name LIKE ?", "%"+tokens[0]+"%")
	for _, tok := range tokens[1:] {
		cond = cond.Or("normalized_name LIKE ?", "%"+tok+"%")
	}
	var candidates []models.ProductModel
	if err := query.Where(cond).Find(&candidates).Error; err != nil {
		return nil, ledger.ErrCollaborator("product matcher", err)
	}

	matches := make([]ledger.ProductMatch, 0, len(candidates))
	for _, p := range candidates {
		score := ScoreTokens(tokens, Tokenize(p.Name))
		if score == 0 {
			continue
		}
		matches = append(matches, ledger.ProductMatch{ProductRef: p.Ref, Name: p.Name, Score: score})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ProductRef < matches[j].ProductRef
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// Normalize folds case and strips diacritics ("Gás Médico" -> "gas medico")
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC, cases.Fold())
	out, _, err := transform.String(t, s)
	if err != nil {
		return strings.ToLower(s)
	}
	return out
}

// Tokenize returns the distinct normalized words of s, in order of appearance
func Tokenize(s string) []string {
	fields := strings.FieldsFunc(Normalize(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]struct{}, len(fields))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) < minTokenLength {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		tokens = append(tokens, f)
	}
	return tokens
}

// ScoreTokens returns 2*|a∩b| / (|a|+|b|) scaled to 0-100
func ScoreTokens(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(b))
	for _, t := range b {
		set[t] = struct{}{}
	}
	common := 0
	for _, t := range a {
		if _, ok := set[t]; ok {
			common++
		}
	}
	return int(math.Round(200 * float64(common) / float64(len(a)+len(b))))
}

var _ ledger.ProductMatcher = (*GormProductMatcher)(nil)

// SaveProduct inserts or renames a catalog product, keeping its normalized name in sync
func (m *GormProductMatcher) SaveProduct(ctx context.Context, ref, name string) error {
	var existing models.ProductModel
	err := m.db.WithContext(ctx).Where("ref = ?", ref).First(&existing).Error
	switch {
	case err == nil:
		existing.Name = name
		existing.NormalizedName = Normalize(name)
		existing.Active = true
		if err := m.db.WithContext(ctx).Save(&existing).Error; err != nil {
			return ledger.ErrRepository("save product", err)
		}
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		product := models.ProductModel{
			BaseModel:      models.NewBaseModel(),
			Ref:            ref,
			Name:           name,
			NormalizedName: Normalize(name),
			Active:         true,
		}
		if err := m.db.WithContext(ctx).Create(&product).Error; err != nil {
			return ledger.ErrRepository("create product", err)
		}
		return nil
	default:
		return ledger.ErrRepository("find product", err)
	}
}
