package access

// Role is the minimum role a route requires.
type Role int

const (
	// RoleAny admits every verified user.
	RoleAny Role = iota
	// RoleSuperuser restricts a route to superusers; others see not-found.
	RoleSuperuser
)

// Route is one entry of the static route table. The table never mutates at
// runtime.
type Route struct {
	Pattern      string `json:"pattern"`
	Component    string `json:"component"`
	RequiredRole Role   `json:"-"`
	// ModelPlugin marks routes that exist only when the model plugin is
	// active for the session.
	ModelPlugin bool `json:"-"`
}

// Well-known paths.
const (
	LoginPath             = "/auth/login"
	EmailConfirmationPath = "/auth/email-confirmation"
	ProjectsPath          = "/projects"
	TasksPath             = "/tasks"
)

// mainRoutes is the full application route table. Project management and
// the user list are superuser-only.
var mainRoutes = []Route{
	{Pattern: "/projects", Component: "projects-page", RequiredRole: RoleSuperuser},
	{Pattern: "/projects/create", Component: "create-project-page", RequiredRole: RoleSuperuser},
	{Pattern: "/projects/{id}", Component: "project-page", RequiredRole: RoleSuperuser},
	{Pattern: "/tasks", Component: "tasks-page"},
	{Pattern: "/tasks/create", Component: "create-task-page", RequiredRole: RoleSuperuser},
	{Pattern: "/tasks/{id}", Component: "task-page"},
	{Pattern: "/tasks/{tid}/jobs/{jid}", Component: "annotation-page"},
	{Pattern: "/cloudstorages", Component: "cloud-storages-page"},
	{Pattern: "/cloudstorages/create", Component: "create-cloud-storage-page"},
	{Pattern: "/cloudstorages/update/{id}", Component: "update-cloud-storage-page"},
	{Pattern: "/userlist", Component: "user-list-page", RequiredRole: RoleSuperuser},
	{Pattern: "/models", Component: "models-page", ModelPlugin: true},
}

// authRoutes are the routes reachable without an identity.
var authRoutes = []Route{
	{Pattern: "/auth/register", Component: "register-page"},
	{Pattern: "/auth/login", Component: "login-page"},
	{Pattern: "/auth/login-with-token/{sessionID}/{token}", Component: "login-with-token-page"},
	{Pattern: "/auth/password/reset", Component: "reset-password-page"},
	{Pattern: "/auth/password/reset/confirm", Component: "reset-password-confirm-page"},
}

// emailConfirmationRoute is the only route an unverified identity may see.
var emailConfirmationRoute = Route{
	Pattern:   EmailConfirmationPath,
	Component: "email-confirmation-page",
}
