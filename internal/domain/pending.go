package domain

import "slices"

type PendingLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Note      string `json:"note,omitempty"`
}

// PendingItems is an order being composed before it is sent to the kitchen.
// Each session owns its own value; nothing about it is shared.
type PendingItems struct {
	lines []PendingLine
}

func NewPendingItems(lines ...PendingLine) PendingItems {
	var p PendingItems
	for _, l := range lines {
		p.AddWithNote(l.ProductID, l.Quantity, l.Note)
	}
	return p
}

// Add merges qty into the un-noted line for productID.
func (p *PendingItems) Add(productID string, qty int) {
	p.AddWithNote(productID, qty, "")
}

// AddWithNote merges qty into the line with the same product and note, so
// "no onions" stays a separate line.
func (p *PendingItems) AddWithNote(productID string, qty int, note string) {
	if productID == "" || qty <= 0 {
		return
	}
	for i := range p.lines {
		if p.lines[i].ProductID == productID && p.lines[i].Note == note {
			p.lines[i].Quantity += qty
			return
		}
	}
	p.lines = append(p.lines, PendingLine{ProductID: productID, Quantity: qty, Note: note})
}

// Decrement lowers the line at idx by one and drops it when it reaches zero.
func (p *PendingItems) Decrement(idx int) {
	if idx < 0 || idx >= len(p.lines) {
		return
	}
	p.lines[idx].Quantity--
	if p.lines[idx].Quantity <= 0 {
		p.lines = slices.Delete(p.lines, idx, idx+1)
	}
}

func (p *PendingItems) SetNote(idx int, note string) {
	if idx < 0 || idx >= len(p.lines) {
		return
	}
	p.lines[idx].Note = note
}

func (p *PendingItems) Clear() { p.lines = nil }

func (p PendingItems) Len() int { return len(p.lines) }

func (p PendingItems) Lines() []PendingLine { return slices.Clone(p.lines) }
