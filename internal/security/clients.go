package security

// In-memory client registry for machine callers of the API
// (replace with DB/config later).
type Client struct {
	ID      string
	Secret  string
	Perms   []string // e.g. {"orders.read"}
	Enabled bool
}

var Clients = map[string]Client{
	"admin-dashboard": {ID: "admin-dashboard", Secret: "admin-dashboard-secret", Perms: []string{"orders.read"}, Enabled: true},
	"svc-notifier":    {ID: "svc-notifier", Secret: "notifier-secret", Perms: []string{"orders.read"}, Enabled: true},
}
