package models

// SubscriptionEntry is one requested subscription: a category plus
// optional location filters. An empty location list means all locations.
type SubscriptionEntry struct {
	CategorySlug  string   `json:"categorySlug" validate:"required"`
	LocationSlugs []string `json:"locationSlugs"`
}

// UpdateSubscriptionsRequest replaces the caller's full subscription set
type UpdateSubscriptionsRequest struct {
	Subscriptions []SubscriptionEntry `json:"subscriptions" validate:"dive"`
}
