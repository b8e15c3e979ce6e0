package clcomponents

import "math"

type ProductKit struct {
	ID            string         `json:"id" validate:"required"`
	Label         string         `json:"label"`
	Price         float64        `json:"price" validate:"gte=0"`
	Link          string         `json:"link"`
	DiscountLinks map[int]string `json:"discountLinks,omitempty"`
	// nil vaut visible
	IsVisible      *bool `json:"isVisible,omitempty"`
	IsSpecial      bool  `json:"isSpecial,omitempty"`
	IsHighlighted  bool  `json:"isHighlighted,omitempty"`
	IgnoreDiscount bool  `json:"ignoreDiscount,omitempty"`
}

func (k ProductKit) Visible() bool {
	return k.IsVisible == nil || *k.IsVisible
}

// VisibleKits retourne les kits affichables, dans l'ordre de la config
func (p *ProductConfig) VisibleKits() []ProductKit {
	kits := make([]ProductKit, 0, len(p.Kits))
	for _, k := range p.Kits {
		if k.Visible() {
			kits = append(kits, k)
		}
	}
	return kits
}

// Kit cherche un kit par id
func (p *ProductConfig) Kit(id string) (ProductKit, bool) {
	for _, k := range p.Kits {
		if k.ID == id {
			return k, true
		}
	}
	return ProductKit{}, false
}

// EffectivePrice applique la remise du produit sauf si le kit en est exempté
func (p *ProductConfig) EffectivePrice(k ProductKit) float64 {
	if k.IgnoreDiscount || p.DiscountPercent <= 0 {
		return k.Price
	}
	price := k.Price * (1 - p.DiscountPercent/100)
	return math.Round(price*100) / 100
}

// KitLink retourne le lien du palier de remise courant s'il existe
func (p *ProductConfig) KitLink(k ProductKit) string {
	if k.IgnoreDiscount || p.DiscountPercent <= 0 {
		return k.Link
	}
	if link, ok := k.DiscountLinks[int(p.DiscountPercent)]; ok && link != "" {
		return link
	}
	return k.Link
}
