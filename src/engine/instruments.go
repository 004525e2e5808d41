package engine

import (
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"mdp-book/src/decoder"
)

// priceExponent is the fixed exponent of PRICE9 mantissas.
const priceExponent = -9

var definitionTemplates = map[uint16]bool{
	27: true, 29: true, 41: true, 54: true, 55: true, 56: true, 57: true, 58: true, 63: true,
}

func IsDefinition(id uint16) bool {
	return definitionTemplates[id]
}

type Instrument struct {
	SecurityID        int32           `json:"security_id"`
	Symbol            string          `json:"symbol"`
	Group             string          `json:"security_group"`
	Asset             string          `json:"asset"`
	DisplayFactor     decimal.Decimal `json:"display_factor"`
	MinPriceIncrement decimal.Decimal `json:"min_price_increment"`
	TemplateID        uint16          `json:"template_id"`
}

// DisplayPrice applies the instrument's display factor to a price mantissa.
func (i Instrument) DisplayPrice(mantissa int64) decimal.Decimal {
	p := decimal.New(mantissa, priceExponent)
	if i.DisplayFactor.IsZero() {
		return p
	}
	return p.Mul(i.DisplayFactor)
}

// Instruments is the definition registry, filled from definition records
// as they are replayed.
type Instruments struct {
	byID map[int32]Instrument
	mu   sync.RWMutex
}

func NewInstruments() *Instruments {
	return &Instruments{byID: make(map[int32]Instrument)}
}

// Observe records a definition; other records are ignored.
func (r *Instruments) Observe(rec *decoder.Record) bool {
	if !IsDefinition(rec.TemplateID) {
		return false
	}
	id, ok := rec.Int("SecurityID")
	if !ok {
		return false
	}

	inst := Instrument{SecurityID: int32(id), TemplateID: rec.TemplateID}
	inst.Symbol, _ = rec.Text("Symbol")
	inst.Group, _ = rec.Text("SecurityGroup")
	inst.Asset, _ = rec.Text("Asset")
	if df, ok := rec.Int("DisplayFactor"); ok {
		inst.DisplayFactor = decimal.New(df, priceExponent)
	}
	if inc, ok := rec.Int("MinPriceIncrement"); ok {
		inst.MinPriceIncrement = decimal.New(inc, priceExponent)
	}

	r.mu.Lock()
	r.byID[inst.SecurityID] = inst
	r.mu.Unlock()
	return true
}

func (r *Instruments) Get(id int32) (Instrument, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.byID[id]
	return inst, ok
}

// Lookup returns the instrument or a bare one with no display factor.
func (r *Instruments) Lookup(id int32) Instrument {
	if inst, ok := r.Get(id); ok {
		return inst
	}
	return Instrument{SecurityID: id}
}

func (r *Instruments) All() []Instrument {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Instrument, 0, len(r.byID))
	for _, inst := range r.byID {
		out = append(out, inst)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SecurityID < out[j].SecurityID })
	return out
}
