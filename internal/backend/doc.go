// Package backend is the HTTP client for the threadline backend.
//
// # Overview
//
// Client wraps every endpoint the terminal client uses and converts wire
// payloads into wardrobe types. It owns the transport policy so callers
// deal only in domain values and classified errors.
//
// # Endpoints
//
//	GET  /recommendation/get   FetchRecommendations
//	POST /outfit/post          ConfirmOutfit, LogOutfit
//	GET  /closet/get           FetchCloset
//	GET  /outfits/get          FetchHistory
//	GET  /declutter/get        FetchDeclutter
//	POST /declutter/post       PostDeclutter
//	GET  /feed/get             FetchFeed
//	GET  /utilization/get      FetchUtilization
//	GET  /categories/get       FetchCategories
//	POST /clothing/create      CreateClothing (multipart)
//	POST /background/remove    RemoveBackground (multipart)
//	POST /image/process        ProcessImage (multipart)
//
// # Transport Policy
//
// GET requests are idempotent and retried with exponential backoff
// (cenkalti/backoff) on transport failures and 5xx responses other than
// 501. Client errors and undecodable bodies fail immediately.
//
// POST requests are sent exactly once. A confirmation carries an
// Idempotency-Key header; reuse the same ConfirmRequest when the user
// retries so the backend can collapse duplicates.
//
// Every request passes through a circuit breaker (sony/gobreaker). Only
// transport failures and 5xx responses count against it. While the
// breaker is open calls fail fast with a NetworkError.
//
// # Errors
//
// All failures are *wardrobe.Error values:
//
//   - KindNetwork: transport failure or HTTP status >= 400 (Status set)
//   - KindDecode: the body was not the expected JSON
//   - KindEmptyResult: no recommendations, no extracted colors
//
// Validation failures for NewClothing and images are returned before any
// request is sent.
//
// # Uploads
//
// Images must be png or jpeg and at most MaxImageBytes. The content type
// is sniffed from the bytes, not the filename. WithProgress lets the CLI
// observe the request body as it is written.
package backend
