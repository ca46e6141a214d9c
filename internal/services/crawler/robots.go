package crawler

import "context"

// RobotsPolicy gates whether the crawler may fetch a URL. spec.md §9
// leaves robots.txt enforcement an open question ("source is silent;
// leave as a policy hook"); AllowAllRobotsPolicy is wired by default so
// behavior is unchanged until an implementer opts into enforcement.
type RobotsPolicy interface {
	Allowed(ctx context.Context, rawURL string) bool
}

// AllowAllRobotsPolicy never restricts a fetch.
type AllowAllRobotsPolicy struct{}

func (AllowAllRobotsPolicy) Allowed(context.Context, string) bool { return true }
