package domain

import "slices"

// DisplayStatus is the status a floor view shows for t. An occupied table
// whose order has been fully served is shown as paying.
func DisplayStatus(t Table, current *Order) TableStatus {
	if t.Status != TableOccupied {
		return TableFree
	}
	if current != nil && current.ID == t.CurrentOrderID && current.Status == OrderDelivered {
		return TablePaying
	}
	return TableOccupied
}

// Occupy links t to orderID. Only free tables can be occupied.
func (t Table) Occupy(orderID string) (Table, bool) {
	if t.Status != TableFree || t.CurrentOrderID != "" {
		return t, false
	}
	t.Status = TableOccupied
	t.CurrentOrderID = orderID
	return t, true
}

// Release frees t if it is held by orderID.
func (t Table) Release(orderID string) (Table, bool) {
	if t.Status != TableOccupied || t.CurrentOrderID != orderID {
		return t, false
	}
	t.Status = TableFree
	t.CurrentOrderID = ""
	return t, true
}

type ResizePlan struct {
	Add     []int
	Remove  []Table
	Blocked []int
}

// PlanResize computes how to reach count tables. Growing appends numbers after
// the current highest; shrinking drops the highest numbers, all of which must
// be free or the plan is blocked.
func PlanResize(tables []Table, count int) ResizePlan {
	sorted := slices.Clone(tables)
	slices.SortFunc(sorted, func(a, b Table) int { return a.Number - b.Number })

	var plan ResizePlan
	switch {
	case count > len(sorted):
		next := 1
		if len(sorted) > 0 {
			next = sorted[len(sorted)-1].Number + 1
		}
		for i := len(sorted); i < count; i++ {
			plan.Add = append(plan.Add, next)
			next++
		}
	case count < len(sorted):
		for _, t := range sorted[count:] {
			if t.Status != TableFree {
				plan.Blocked = append(plan.Blocked, t.Number)
				continue
			}
			plan.Remove = append(plan.Remove, t)
		}
		if len(plan.Blocked) > 0 {
			plan.Remove = nil
		}
	}
	return plan
}
