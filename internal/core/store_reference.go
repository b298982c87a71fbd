package core

import (
	"context"
	"fmt"

	"cropplan/pkg/domain"
)

// ImportCounts reports the outcome of a batch reference import. Upserts are
// keyed by content identity, so re-importing the same input is idempotent.
type ImportCounts struct {
	Added   int
	Updated int
	// Unresolved counts seed-mix components whose variety reference could
	// not be matched (seed-mix import only).
	Unresolved int
}

// AddVariety adds a variety record.
func (s *PlanStore) AddVariety(ctx context.Context, v domain.Variety) (domain.Variety, error) {
	err := s.mutate(ctx, "add_variety", fmt.Sprintf("Added variety %q", v.Name), func(p *domain.Plan) error {
		if v.ID == "" {
			v.ID = domain.NewID("var")
		}
		for _, existing := range p.Varieties {
			if existing.ID == v.ID {
				return domain.ConflictError{Entity: domain.EntityVariety, Ref: v.ID, Reason: "id already exists"}
			}
		}
		p.Varieties = append(p.Varieties, v)
		return nil
	})
	return v, err
}

// UpdateVariety replaces a variety record by id.
func (s *PlanStore) UpdateVariety(ctx context.Context, v domain.Variety) error {
	return s.mutate(ctx, "update_variety", fmt.Sprintf("Updated variety %q", v.Name), func(p *domain.Plan) error {
		for i := range p.Varieties {
			if p.Varieties[i].ID == v.ID {
				p.Varieties[i] = v
				return nil
			}
		}
		return domain.NotFoundError{Entity: domain.EntityVariety, Ref: v.ID}
	})
}

// DeleteVariety removes a variety, clearing any planting seed source and any
// seed-mix component that referenced it.
func (s *PlanStore) DeleteVariety(ctx context.Context, varietyID string) error {
	return s.mutate(ctx, "delete_variety", "Deleted variety", func(p *domain.Plan) error {
		idx := -1
		for i := range p.Varieties {
			if p.Varieties[i].ID == varietyID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return domain.NotFoundError{Entity: domain.EntityVariety, Ref: varietyID}
		}
		p.Varieties = append(p.Varieties[:idx], p.Varieties[idx+1:]...)
		for i := range p.Plantings {
			if p.Plantings[i].SeedSourceID != nil && *p.Plantings[i].SeedSourceID == varietyID {
				p.Plantings[i].SeedSourceID = nil
			}
		}
		for i := range p.SeedMixes {
			components := p.SeedMixes[i].Components[:0]
			for _, c := range p.SeedMixes[i].Components {
				if c.VarietyID != varietyID {
					components = append(components, c)
				}
			}
			p.SeedMixes[i].Components = components
		}
		return nil
	})
}

// ImportVarieties upserts varieties by content key (crop+name+supplier).
func (s *PlanStore) ImportVarieties(ctx context.Context, input []domain.Variety) (ImportCounts, error) {
	var counts ImportCounts
	err := s.mutate(ctx, "import_varieties", fmt.Sprintf("Imported %d varieties", len(input)), func(p *domain.Plan) error {
		byKey := make(map[string]int, len(p.Varieties))
		for i, v := range p.Varieties {
			byKey[v.ContentKey()] = i
		}
		for _, v := range input {
			if i, exists := byKey[v.ContentKey()]; exists {
				v.ID = p.Varieties[i].ID
				p.Varieties[i] = v
				counts.Updated++
				continue
			}
			if v.ID == "" {
				v.ID = domain.NewID("var")
			}
			byKey[v.ContentKey()] = len(p.Varieties)
			p.Varieties = append(p.Varieties, v)
			counts.Added++
		}
		return nil
	})
	return counts, err
}

// AddSeedMix adds a seed mix record.
func (s *PlanStore) AddSeedMix(ctx context.Context, m domain.SeedMix) (domain.SeedMix, error) {
	err := s.mutate(ctx, "add_seed_mix", fmt.Sprintf("Added seed mix %q", m.Name), func(p *domain.Plan) error {
		if m.ID == "" {
			m.ID = domain.NewID("mix")
		}
		p.SeedMixes = append(p.SeedMixes, domain.CloneSeedMix(m))
		return nil
	})
	return m, err
}

// UpdateSeedMix replaces a seed mix by id.
func (s *PlanStore) UpdateSeedMix(ctx context.Context, m domain.SeedMix) error {
	return s.mutate(ctx, "update_seed_mix", fmt.Sprintf("Updated seed mix %q", m.Name), func(p *domain.Plan) error {
		for i := range p.SeedMixes {
			if p.SeedMixes[i].ID == m.ID {
				p.SeedMixes[i] = domain.CloneSeedMix(m)
				return nil
			}
		}
		return domain.NotFoundError{Entity: domain.EntitySeedMix, Ref: m.ID}
	})
}

// DeleteSeedMix removes a seed mix, clearing planting seed sources that
// referenced it.
func (s *PlanStore) DeleteSeedMix(ctx context.Context, mixID string) error {
	return s.mutate(ctx, "delete_seed_mix", "Deleted seed mix", func(p *domain.Plan) error {
		idx := -1
		for i := range p.SeedMixes {
			if p.SeedMixes[i].ID == mixID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return domain.NotFoundError{Entity: domain.EntitySeedMix, Ref: mixID}
		}
		p.SeedMixes = append(p.SeedMixes[:idx], p.SeedMixes[idx+1:]...)
		for i := range p.Plantings {
			if p.Plantings[i].SeedSourceID != nil && *p.Plantings[i].SeedSourceID == mixID {
				p.Plantings[i].SeedSourceID = nil
			}
		}
		return nil
	})
}

// ImportSeedMixes upserts seed mixes by content key (name+crop). Components
// are resolved against stored variety ids; components whose variety id does
// not exist in the plan are dropped and counted as unresolved.
func (s *PlanStore) ImportSeedMixes(ctx context.Context, input []domain.SeedMix) (ImportCounts, error) {
	var counts ImportCounts
	err := s.mutate(ctx, "import_seed_mixes", fmt.Sprintf("Imported %d seed mixes", len(input)), func(p *domain.Plan) error {
		varietyIDs := make(map[string]bool, len(p.Varieties))
		for _, v := range p.Varieties {
			varietyIDs[v.ID] = true
		}
		byKey := make(map[string]int, len(p.SeedMixes))
		for i, m := range p.SeedMixes {
			byKey[m.ContentKey()] = i
		}
		for _, m := range input {
			resolved := make([]domain.SeedMixComponent, 0, len(m.Components))
			for _, c := range m.Components {
				if varietyIDs[c.VarietyID] {
					resolved = append(resolved, c)
				} else {
					counts.Unresolved++
				}
			}
			m.Components = resolved
			if i, exists := byKey[m.ContentKey()]; exists {
				m.ID = p.SeedMixes[i].ID
				p.SeedMixes[i] = m
				counts.Updated++
				continue
			}
			if m.ID == "" {
				m.ID = domain.NewID("mix")
			}
			byKey[m.ContentKey()] = len(p.SeedMixes)
			p.SeedMixes = append(p.SeedMixes, m)
			counts.Added++
		}
		return nil
	})
	return counts, err
}

// AddProduct adds a product record.
func (s *PlanStore) AddProduct(ctx context.Context, pr domain.Product) (domain.Product, error) {
	err := s.mutate(ctx, "add_product", fmt.Sprintf("Added product %q", pr.Product), func(p *domain.Plan) error {
		if pr.ID == "" {
			pr.ID = domain.NewID("prd")
		}
		p.Products = append(p.Products, pr)
		return nil
	})
	return pr, err
}

// UpdateProduct replaces a product by id.
func (s *PlanStore) UpdateProduct(ctx context.Context, pr domain.Product) error {
	return s.mutate(ctx, "update_product", fmt.Sprintf("Updated product %q", pr.Product), func(p *domain.Plan) error {
		for i := range p.Products {
			if p.Products[i].ID == pr.ID {
				p.Products[i] = pr
				return nil
			}
		}
		return domain.NotFoundError{Entity: domain.EntityProduct, Ref: pr.ID}
	})
}

// DeleteProduct removes a product record.
func (s *PlanStore) DeleteProduct(ctx context.Context, productID string) error {
	return s.mutate(ctx, "delete_product", "Deleted product", func(p *domain.Plan) error {
		for i := range p.Products {
			if p.Products[i].ID == productID {
				p.Products = append(p.Products[:i], p.Products[i+1:]...)
				return nil
			}
		}
		return domain.NotFoundError{Entity: domain.EntityProduct, Ref: productID}
	})
}

// ImportProducts upserts products by content key (crop+product+unit).
func (s *PlanStore) ImportProducts(ctx context.Context, input []domain.Product) (ImportCounts, error) {
	var counts ImportCounts
	err := s.mutate(ctx, "import_products", fmt.Sprintf("Imported %d products", len(input)), func(p *domain.Plan) error {
		byKey := make(map[string]int, len(p.Products))
		for i, pr := range p.Products {
			byKey[pr.ContentKey()] = i
		}
		for _, pr := range input {
			if i, exists := byKey[pr.ContentKey()]; exists {
				pr.ID = p.Products[i].ID
				p.Products[i] = pr
				counts.Updated++
				continue
			}
			if pr.ID == "" {
				pr.ID = domain.NewID("prd")
			}
			byKey[pr.ContentKey()] = len(p.Products)
			p.Products = append(p.Products, pr)
			counts.Added++
		}
		return nil
	})
	return counts, err
}
