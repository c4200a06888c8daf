package auth

import (
	"fmt"
	"io"
	"net/url"

	"github.com/desertthunder/chartwatch/internal/shared"
	"golang.org/x/net/html"
)

// loginForm holds the fields scraped from the identity provider's login page.
type loginForm struct {
	action string // form action resolved against the auth base URL
	csrf   string // csrfmiddlewaretoken hidden input
	next   string // optional post-login redirect target
}

// parseLoginForm extracts the CSRF token and login form action from the
// provider's login page HTML. The form action is resolved relative to base.
func parseLoginForm(r io.Reader, base *url.URL) (*loginForm, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse login page: %w", err)
	}

	form := &loginForm{}
	var action string
	var foundForm bool

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "form":
				if !foundForm {
					foundForm = true
					action = attr(n, "action")
				}
			case "input":
				switch attr(n, "name") {
				case "csrfmiddlewaretoken":
					if form.csrf == "" {
						form.csrf = attr(n, "value")
					}
				case "next":
					if form.next == "" {
						form.next = attr(n, "value")
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if form.csrf == "" {
		return nil, shared.ErrCSRFNotFound
	}
	if !foundForm || action == "" {
		return nil, shared.ErrLoginFormMissing
	}

	ref, err := url.Parse(action)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid form action %q", shared.ErrLoginFormMissing, action)
	}
	form.action = base.ResolveReference(ref).String()

	return form, nil
}

// attr returns the value of the named attribute on an element node.
func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}
