package persistence

import (
	"fmt"
	"net/url"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// NewMongoDb creates a Mongo client for the audit store. Callers ping and
// fall back to nil when Mongo is unavailable; the worker treats the audit
// store as best-effort.
func NewMongoDb(host, port, user, password, name string) (*mongo.Client, error) {
	u := &url.URL{Scheme: "mongodb", Host: fmt.Sprintf("%s:%s", host, port), Path: "/" + name}
	if user != "" {
		if password != "" {
			u.User = url.UserPassword(user, password)
		} else {
			u.User = url.User(user)
		}
	}
	return mongo.Connect(options.Client().ApplyURI(u.String()))
}
