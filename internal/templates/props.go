package templates

// LoginPageProps contains properties for the login page
type LoginPageProps struct {
	Username    string
	LoginFailed bool
}
