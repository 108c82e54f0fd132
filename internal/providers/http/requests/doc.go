// Package requests layers REST verbs, JSON bodies and status classification
// over the client facade.
package requests
