// Package location resolves the user's location for recommendation
// requests.
//
// A Coordinator wraps a Provider and makes sure many concurrent callers
// cost a single lookup:
//
//	coord := location.NewCoordinator(location.NewStatic(cfg.Lat, cfg.Lon),
//		location.WithTimeout(10*time.Second))
//
//	coord.Request(func(loc location.Location, err error) {
//		// runs once, with the shared outcome
//	})
//
//	loc, err := coord.Current(ctx) // blocking form
//
// The first successful fix is cached until Invalidate. A failed lookup
// settles every queued request with a wardrobe.ErrLocationUnavailable
// error, so no caller waits forever, and the next request starts over.
package location
