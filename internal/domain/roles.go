package domain

type Role string

const (
	RoleOwner   Role = "owner"
	RoleAdmin   Role = "admin"
	RoleWaiter  Role = "waiter"
	RoleKitchen Role = "kitchen"
)

func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleWaiter, RoleKitchen:
		return true
	}
	return false
}

// View is a role dashboard.
type View string

const (
	ViewWaiter  View = "/waiter"
	ViewKitchen View = "/kitchen"
	ViewAdmin   View = "/admin"
)

var landing = map[Role]View{
	RoleOwner:   ViewAdmin,
	RoleAdmin:   ViewAdmin,
	RoleWaiter:  ViewWaiter,
	RoleKitchen: ViewKitchen,
}

var viewAccess = map[View][]Role{
	ViewWaiter:  {RoleWaiter, RoleAdmin, RoleOwner},
	ViewKitchen: {RoleKitchen, RoleAdmin, RoleOwner},
	ViewAdmin:   {RoleAdmin, RoleOwner},
}

// LandingView returns the dashboard a role is routed to after login.
func LandingView(r Role) (View, bool) {
	v, ok := landing[r]
	return v, ok
}

// CanEnter is the mid-session guard: a role may open its own landing view
// and any view listed for it.
func CanEnter(r Role, v View) bool {
	if home, ok := landing[r]; ok && home == v {
		return true
	}
	for _, allowed := range viewAccess[v] {
		if allowed == r {
			return true
		}
	}
	return false
}

// RolesFor lists the roles allowed into v.
func RolesFor(v View) []string {
	out := make([]string, 0, len(viewAccess[v]))
	for _, r := range viewAccess[v] {
		out = append(out, string(r))
	}
	return out
}

type Action string

const (
	ActTakeOrder     Action = "take_order"
	ActCancelItem    Action = "cancel_item"
	ActCancelOrder   Action = "cancel_order"
	ActCook          Action = "cook"
	ActServe         Action = "serve"
	ActFinalize      Action = "finalize_payment"
	ActDispatch      Action = "dispatch"
	ActConfigure     Action = "configure"
	ActViewReceipts  Action = "view_receipts"
	ActImportProduct Action = "import_products"
)

// actionView maps each action to the dashboard it is performed from. A role
// may perform an action iff it may enter that dashboard.
var actionView = map[Action]View{
	ActTakeOrder:     ViewWaiter,
	ActCancelItem:    ViewWaiter,
	ActCancelOrder:   ViewWaiter,
	ActCook:          ViewKitchen,
	ActServe:         ViewWaiter,
	ActFinalize:      ViewWaiter,
	ActDispatch:      ViewWaiter,
	ActConfigure:     ViewAdmin,
	ActViewReceipts:  ViewAdmin,
	ActImportProduct: ViewAdmin,
}

func Allowed(r Role, a Action) bool {
	v, ok := actionView[a]
	return ok && CanEnter(r, v)
}

// AdvanceAction is the action required to move an item into status to.
func AdvanceAction(to ItemStatus) Action {
	if to == ItemDelivered {
		return ActServe
	}
	return ActCook
}
