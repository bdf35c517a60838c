package navigation

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"emergency_dashboard/internal/logger"
)

var ErrUnknownLink = errors.New("unknown navigation link")

// Link names as used by the header and the auth screens.
const (
	LinkHome    = "home"
	LinkLogin   = "login"
	LinkSignup  = "signup"
	LinkFindID  = "findid"
	LinkResetPW = "resetpw"
)

var routes = map[string]string{
	LinkHome:    "/",
	LinkLogin:   "/user/login",
	LinkSignup:  "/user/signup",
	LinkFindID:  "/user/findid",
	LinkResetPW: "/user/resetpw",
}

// Navigator performs a view transition to path. The rendering layer owns the
// real transition; the core only asks for it.
type Navigator interface {
	Navigate(ctx context.Context, path string) error
}

// Func adapts a plain function to Navigator.
type Func func(ctx context.Context, path string) error

func (f Func) Navigate(ctx context.Context, path string) error { return f(ctx, path) }

// Resolve maps a link name to its route path.
func Resolve(link string) (string, error) {
	path, ok := routes[link]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownLink, link)
	}
	return path, nil
}

// Links returns the known link names in sorted order.
func Links() []string {
	out := make([]string, 0, len(routes))
	for k := range routes {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Logging returns a Navigator that only logs the requested transition, for
// deployments where the client performs navigation itself.
func Logging(log *logger.Logger) Navigator {
	log = logger.OrNop(log)
	return Func(func(ctx context.Context, path string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		log.Infow("navigation_requested", "path", path)
		return nil
	})
}
