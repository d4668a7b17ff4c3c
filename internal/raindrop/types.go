package raindrop

import "time"

// Raindrop is one bookmark record as the API returns it. The engine
// treats it as an immutable snapshot for the duration of a pass.
type Raindrop struct {
	ID         int64         `json:"_id"`
	Collection CollectionRef `json:"collection"`
	Title      string        `json:"title"`
	Excerpt    string        `json:"excerpt"`
	Link       string        `json:"link"`
	Domain     string        `json:"domain"`
	Tags       []string      `json:"tags"`
	Created    time.Time     `json:"created"`
	LastUpdate time.Time     `json:"lastUpdate"`
}

// CollectionRef is the nested collection pointer on a record. Raindrop
// uses -1 for the built-in Unsorted collection.
type CollectionRef struct {
	ID int64 `json:"$id"`
}

// CollectionID returns the owning collection id, or a non-positive
// value when the record is unsorted.
func (r *Raindrop) CollectionID() int64 {
	return r.Collection.ID
}

// Collection is one folder in the user's Raindrop hierarchy.
type Collection struct {
	ID     int64      `json:"_id"`
	Title  string     `json:"title"`
	Count  int        `json:"count"`
	Parent *ParentRef `json:"parent"`
}

// ParentRef is the optional parent pointer on a collection.
type ParentRef struct {
	ID int64 `json:"$id"`
}

// ParentID returns the parent collection id and whether one is set.
func (c *Collection) ParentID() (int64, bool) {
	if c.Parent == nil {
		return 0, false
	}

	return c.Parent.ID, true
}

// raindropsResponse is the body of GET /raindrops/{collection}. Count
// is the server-reported total across all pages.
type raindropsResponse struct {
	Result bool       `json:"result"`
	Items  []Raindrop `json:"items"`
	Count  int        `json:"count"`
}

// collectionsResponse is the body of GET /collections and
// GET /collections/childrens.
type collectionsResponse struct {
	Result bool         `json:"result"`
	Items  []Collection `json:"items"`
}

// updateRequest is the PUT body for a single-record update. A nil tag
// slice leaves the remote tags untouched.
type updateRequest struct {
	Excerpt string   `json:"excerpt"`
	Tags    []string `json:"tags,omitempty"`
}
