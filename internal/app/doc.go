// Package app is the composition root of threadline.
//
// Setup loads config.toml and prefs.toml, opens the JSON log file and
// builds the backend client. Run adds the rest and blocks in the TUI:
//
//	Run()
//	  ├─> Setup()                      config, prefs, log, backend client
//	  ├─> location.NewCoordinator()    single-flight location lookups
//	  ├─> recommend.NewSession()       outfit view state
//	  ├─> feed.NewPager()              public feed
//	  ├─> NewRefresher().Start()       closet/utilization/declutter polling
//	  └─> ui.Run()                     blocks until quit
//
// # Refresher
//
// The refresher fetches the closet, utilization and declutter list for the
// current user and writes them to a state.Store in one Update. It runs at
// the configured poll interval; after a failure it waits
// calculateBackoff(failures, interval) instead, doubling per failure up
// to 30s or eight intervals, whichever is longer. Trigger forces an immediate refresh, and SetUsername switches
// users and triggers one. Nothing is fetched while no username is set.
//
// Failures never stop polling. They are logged and recorded in the store,
// which keeps the previous data on screen.
//
// The username is taken from Options, then config, then prefs. When none
// is set the UI asks for one.
package app
