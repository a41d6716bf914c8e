package model

import (
    "errors"
    "fmt"
    "sort"
)

// ErrUnknownSelection is returned when a selection does not map to an entry
// of the price table.
var ErrUnknownSelection = errors.New("unknown tier or pass selection")

// TierPrices maps delegate tiers to their fixed price in rupees.
var TierPrices = map[string]int64{
    "tier1": 375,
    "tier2": 650,
    "tier3": 850,
}

// PassPrices maps pass types without sub-tiers to their price.
var PassPrices = map[string]int64{
    "cultural":  250,
    "technical": 300,
}

// PassTierPrices holds pass types that are sold in sub-tiers.  A selection of
// one of these pass types must name a pass tier.
var PassTierPrices = map[string]map[string]int64{
    "proshow": {
        "standard": 500,
        "vip":      1000,
    },
}

// PriceOf returns the amount charged for a tier/pass selection.
func PriceOf(sel Selection) (int64, error) {
    switch {
    case sel.Tier != "" && sel.PassType != "":
        return 0, fmt.Errorf("%w: both tier and pass set", ErrUnknownSelection)
    case sel.Tier != "":
        p, ok := TierPrices[sel.Tier]
        if !ok {
            return 0, fmt.Errorf("%w: tier %q", ErrUnknownSelection, sel.Tier)
        }
        return p, nil
    case sel.PassType != "":
        if tiers, ok := PassTierPrices[sel.PassType]; ok {
            p, ok := tiers[sel.PassTier]
            if !ok {
                return 0, fmt.Errorf("%w: pass %q tier %q", ErrUnknownSelection, sel.PassType, sel.PassTier)
            }
            return p, nil
        }
        if sel.PassTier != "" {
            return 0, fmt.Errorf("%w: pass %q has no tiers", ErrUnknownSelection, sel.PassType)
        }
        p, ok := PassPrices[sel.PassType]
        if !ok {
            return 0, fmt.Errorf("%w: pass %q", ErrUnknownSelection, sel.PassType)
        }
        return p, nil
    }
    return 0, fmt.Errorf("%w: empty selection", ErrUnknownSelection)
}

// PriceEntry is one row of the published price list.
type PriceEntry struct {
    Kind     string `json:"kind"` // "tier" or "pass"
    Name     string `json:"name"`
    PassTier string `json:"pass_tier,omitempty"`
    Amount   int64  `json:"amount"`
}

// PriceList flattens the price table into a deterministic list for the
// public catalog.
func PriceList() []PriceEntry {
    out := make([]PriceEntry, 0, len(TierPrices)+len(PassPrices)+2)
    for name, amt := range TierPrices {
        out = append(out, PriceEntry{Kind: "tier", Name: name, Amount: amt})
    }
    for name, amt := range PassPrices {
        out = append(out, PriceEntry{Kind: "pass", Name: name, Amount: amt})
    }
    for name, tiers := range PassTierPrices {
        for tier, amt := range tiers {
            out = append(out, PriceEntry{Kind: "pass", Name: name, PassTier: tier, Amount: amt})
        }
    }
    sort.Slice(out, func(i, j int) bool {
        if out[i].Kind != out[j].Kind {
            return out[i].Kind > out[j].Kind // tiers first
        }
        if out[i].Name != out[j].Name {
            return out[i].Name < out[j].Name
        }
        return out[i].Amount < out[j].Amount
    })
    return out
}
