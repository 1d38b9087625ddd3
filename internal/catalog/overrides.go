package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrDuplicateOverride = errors.New("more than one override for the same slot")

// ApplyOverrides replaces min/max on every slot that has an override. Options
// and prices are untouched. The input slice is not modified.
func ApplyOverrides(slots []ResolvedSlot, overrides []SlotOverride) ([]ResolvedSlot, error) {
	bySlot := make(map[uuid.UUID]SlotOverride, len(overrides))
	for _, o := range overrides {
		if _, dup := bySlot[o.SlotID]; dup {
			return nil, fmt.Errorf("%w: package item %s slot %s", ErrDuplicateOverride, o.PackageItemID, o.SlotID)
		}
		bySlot[o.SlotID] = o
	}

	out := cloneResolved(slots)
	for i := range out {
		o, ok := bySlot[out[i].ID]
		if !ok {
			continue
		}
		out[i].MinQuantity = o.MinQuantity
		out[i].MaxQuantity = o.MaxQuantity
		out[i].Overridden = true
	}
	return out, nil
}

// ResolvedPackageItem is a package sub-item with its effective slots.
type ResolvedPackageItem struct {
	Item    PackageItem    `json:"item"`
	Product Product        `json:"product"`
	Slots   []ResolvedSlot `json:"slots"`
}

// OverrideResolver computes effective slot bounds for products inside packages.
type OverrideResolver struct {
	gw     Gateway
	slots  *SlotResolver
	logger *zap.Logger
}

func NewOverrideResolver(gw Gateway, slots *SlotResolver, logger *zap.Logger) *OverrideResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OverrideResolver{gw: gw, slots: slots, logger: logger}
}

// Resolve returns the effective slots of one package item.
func (r *OverrideResolver) Resolve(ctx context.Context, item PackageItem) ([]ResolvedSlot, error) {
	base, err := r.slots.Resolve(ctx, item.ProductID)
	if err != nil {
		return nil, err
	}
	ovs, err := r.gw.ListOverrides(ctx, item.ID)
	if err != nil {
		return nil, fmt.Errorf("package item %s: %w", item.ID, err)
	}

	known := make(map[uuid.UUID]bool, len(base))
	for _, s := range base {
		known[s.ID] = true
	}
	for _, o := range ovs {
		if !known[o.SlotID] {
			r.logger.Warn("override references a slot the product does not expose",
				zap.String("package_item_id", item.ID.String()),
				zap.String("slot_id", o.SlotID.String()),
			)
		}
	}
	return ApplyOverrides(base, ovs)
}

// ResolvePackage loads a package and the effective slots of all its items in
// display order. A sub-item whose product is gone fails the whole call since
// the package could not be priced correctly.
func (r *OverrideResolver) ResolvePackage(ctx context.Context, packageID uuid.UUID) (Package, []ResolvedPackageItem, error) {
	pkg, err := r.gw.GetPackage(ctx, packageID)
	if err != nil {
		return Package{}, nil, err
	}
	items, err := r.gw.ListPackageItems(ctx, packageID)
	if err != nil {
		return Package{}, nil, err
	}

	out := make([]ResolvedPackageItem, 0, len(items))
	for i, it := range items {
		p, err := r.gw.GetProduct(ctx, it.ProductID)
		if err != nil {
			return Package{}, nil, fmt.Errorf("item[%d]: %w", i, err)
		}
		slots, err := r.Resolve(ctx, it)
		if err != nil {
			return Package{}, nil, fmt.Errorf("item[%d]: %w", i, err)
		}
		out = append(out, ResolvedPackageItem{Item: it, Product: p, Slots: slots})
	}
	return pkg, out, nil
}
