package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ResolvedOption is one legal choice in a slot.
type ResolvedOption struct {
	Product         Product         `json:"product"`
	IsDefault       bool            `json:"is_default"`
	PriceAdjustment decimal.Decimal `json:"price_adjustment"`
	// EffectivePrice is the option's base price plus the slot adjustment.
	EffectivePrice decimal.Decimal `json:"effective_price"`
}

// ResolvedSlot is a slot with its legal options and effective bounds.
type ResolvedSlot struct {
	ID                 uuid.UUID        `json:"id"`
	ProductID          uuid.UUID        `json:"product_id"`
	Label              string           `json:"label"`
	ModifierCategoryID uuid.UUID        `json:"modifier_category_id"`
	MinQuantity        int32            `json:"min_quantity"`
	MaxQuantity        int32            `json:"max_quantity"`
	Overridden         bool             `json:"overridden"`
	Options            []ResolvedOption `json:"options"`
}

// Option looks up the option backed by productID.
func (s ResolvedSlot) Option(productID uuid.UUID) (ResolvedOption, bool) {
	for _, o := range s.Options {
		if o.Product.ID == productID {
			return o, true
		}
	}
	return ResolvedOption{}, false
}

// Defaults returns the default options, capped at the slot's max.
func (s ResolvedSlot) Defaults() []ResolvedOption {
	var out []ResolvedOption
	for _, o := range s.Options {
		if int32(len(out)) >= s.MaxQuantity {
			break
		}
		if o.IsDefault {
			out = append(out, o)
		}
	}
	return out
}

func cloneResolved(in []ResolvedSlot) []ResolvedSlot {
	out := make([]ResolvedSlot, len(in))
	for i, s := range in {
		out[i] = s
		out[i].Options = append([]ResolvedOption(nil), s.Options...)
	}
	return out
}

// SlotResolver produces the ordered slot list of a product.
type SlotResolver struct {
	gw     Gateway
	logger *zap.Logger
}

func NewSlotResolver(gw Gateway, logger *zap.Logger) *SlotResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SlotResolver{gw: gw, logger: logger}
}

// Resolve returns the product's slots in display order. A slot with explicit
// options offers exactly those products at base price plus adjustment; a slot
// without them offers its whole modifier category at base price. A slot that
// references an option product no longer in the catalog is skipped with a
// warning.
func (r *SlotResolver) Resolve(ctx context.Context, productID uuid.UUID) ([]ResolvedSlot, error) {
	slots, err := r.gw.ListSlots(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("resolve slots: %w", err)
	}

	out := make([]ResolvedSlot, 0, len(slots))
	for _, s := range slots {
		rs := ResolvedSlot{
			ID:                 s.ID,
			ProductID:          s.ProductID,
			Label:              s.Label,
			ModifierCategoryID: s.ModifierCategoryID,
			MinQuantity:        s.MinQuantity,
			MaxQuantity:        s.MaxQuantity,
			Options:            []ResolvedOption{},
		}

		if len(s.Options) > 0 {
			opts, err := r.explicitOptions(ctx, s)
			if errors.Is(err, ErrProductNotFound) {
				r.logger.Warn("skipping slot with missing option product",
					zap.String("product_id", productID.String()),
					zap.String("slot_id", s.ID.String()),
					zap.Error(err),
				)
				continue
			}
			if err != nil {
				return nil, err
			}
			rs.Options = opts
		} else {
			products, err := r.gw.ListProductsByCategory(ctx, s.ModifierCategoryID)
			if err != nil {
				return nil, fmt.Errorf("slot %q: %w", s.Label, err)
			}
			for _, p := range products {
				rs.Options = append(rs.Options, ResolvedOption{
					Product:         p,
					PriceAdjustment: decimal.Zero,
					EffectivePrice:  p.Price,
				})
			}
		}
		out = append(out, rs)
	}
	return out, nil
}

func (r *SlotResolver) explicitOptions(ctx context.Context, s ModifierSlot) ([]ResolvedOption, error) {
	opts := make([]ResolvedOption, 0, len(s.Options))
	for _, o := range s.Options {
		p, err := r.gw.GetProduct(ctx, o.ProductID)
		if err != nil {
			return nil, fmt.Errorf("slot %q option %s: %w", s.Label, o.ProductID, err)
		}
		opts = append(opts, ResolvedOption{
			Product:         p,
			IsDefault:       o.IsDefault,
			PriceAdjustment: o.PriceAdjustment,
			EffectivePrice:  p.Price.Add(o.PriceAdjustment),
		})
	}
	return opts, nil
}
