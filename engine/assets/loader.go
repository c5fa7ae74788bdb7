package assets

import "github.com/spaghettifunk/rekindle/engine/renderer/metadata"

type Loader interface {
	// Load reads the file at path. params is loader specific and may be nil.
	Load(path string, params interface{}) (*metadata.Resource, error)
	Unload(*metadata.Resource) error
}
