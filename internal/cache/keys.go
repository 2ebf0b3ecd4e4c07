package cache

// Scope keys. The id segment is the filtering context: the user for
// private todos and group lists, the group for group todos and members.
const (
	keyPrivateTodos = "privateTodos/"
	keyPublicTodos  = "publicTodos"
	keyGroupTodos   = "groupTodos/"
	keyGroups       = "groups/"
	keyGroupMembers = "groupMembers/"
	keyAllUsers     = "allUsers"
)

// PrivateTodosKey scopes the private todo list to its owner.
func PrivateTodosKey(userID string) string { return keyPrivateTodos + userID }

// PublicTodosKey is unscoped: the public list shows every record.
func PublicTodosKey() string { return keyPublicTodos }

// GroupTodosKey scopes a group's todo list.
func GroupTodosKey(groupID string) string { return keyGroupTodos + groupID }

// GroupsKey scopes the group list to the viewing user.
func GroupsKey(userID string) string { return keyGroups + userID }

// GroupMembersKey scopes a group's membership list.
func GroupMembersKey(groupID string) string { return keyGroupMembers + groupID }

// AllUsersKey caches the user directory used by member management.
func AllUsersKey() string { return keyAllUsers }
