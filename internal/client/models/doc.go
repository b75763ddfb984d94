// Package models defines the client-side data shapes exchanged with the
// PVault RemoteAPI and held by the session and verification components.
package models
