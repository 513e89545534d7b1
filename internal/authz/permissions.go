package authz

// Actions checked by the policy functions.
const (
	ActionView   = "view"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// ForbiddenMessage is the only text returned to the client on a 403.
const ForbiddenMessage = "You do not have permission to perform this action"
