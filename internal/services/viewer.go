package services

// Viewer is the authenticated identity a request acts as.
type Viewer struct {
	UserID   string
	Username string
	IsVendor bool
}

// Anonymous reports whether the viewer carries no identity.
func (v Viewer) Anonymous() bool { return v.UserID == "" }
