package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// LoginPage is the account-linking form. It posts back to the same URL so
// the OAuth query parameters survive the round trip.
func LoginPage(props LoginPageProps) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>Smart home sign in</title>
  <link rel="stylesheet" href="/css/style.css">
</head>
<body>
  <main class="card">
    <h1>Link your smart home</h1>
`); err != nil {
			return err
		}
		if props.LoginFailed {
			if _, err := io.WriteString(w,
				`    <p class="error" role="alert">Invalid username or password.</p>
`); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `    <form method="post">
      <label for="username">Username</label>
      <input id="username" name="username" type="text" autocomplete="username" value="`+
			templ.EscapeString(props.Username)+`" required autofocus>
      <label for="password">Password</label>
      <input id="password" name="password" type="password" autocomplete="current-password" required>
      <button type="submit">Sign in</button>
    </form>
  </main>
</body>
</html>
`)
		return err
	})
}
