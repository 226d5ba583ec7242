package models

import "time"

// Assertion is the verified identity claim set decoded from an ID token or
// session cookie. It is immutable once issued by the identity provider.
type Assertion struct {
	UID         string
	Email       string
	PhoneNumber string
	Name        string
	Picture     string
	// Providers holds the identity-provider keys the assertion was signed
	// in with (e.g. "google.com", "password", "phone").
	Providers []string
}

// UserRecord is the per-user document owned by the reconciler. Optional
// fields are last-write-wins per field; Providers only ever grows.
type UserRecord struct {
	UID         string    `json:"uid" firestore:"uid"`
	Email       string    `json:"email,omitempty" firestore:"email,omitempty"`
	PhoneNumber string    `json:"phoneNumber,omitempty" firestore:"phoneNumber,omitempty"`
	DisplayName string    `json:"displayName,omitempty" firestore:"displayName,omitempty"`
	PhotoURL    string    `json:"photoURL,omitempty" firestore:"photoURL,omitempty"`
	Providers   []string  `json:"providers" firestore:"providers"`
	CreatedAt   time.Time `json:"createdAt" firestore:"createdAt"`
	LastLogin   time.Time `json:"lastLogin" firestore:"lastLogin"`
}
