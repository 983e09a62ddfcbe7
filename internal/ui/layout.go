package ui

import "time"

// LayoutCompactWidth is the width below which the header shortens errors.
const LayoutCompactWidth = 100

// LogLineLimit is how many lines of the log file the logs view keeps.
const LogLineLimit = 2000

// DefaultUIInterval is how often the UI re-reads the store.
const DefaultUIInterval = time.Second
