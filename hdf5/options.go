package hdf5

// OpenOption configures how a file is opened.
type OpenOption func(*openOptions)

type openOptions struct {
	maxLinkDepth   int
	followExternal bool
}

func defaultOpenOptions() openOptions {
	return openOptions{
		maxLinkDepth:   MaxLinkDepth,
		followExternal: true,
	}
}

// WithMaxLinkDepth caps the number of soft and external links followed in a
// single resolution. Values outside (0, MaxLinkDepth] are ignored.
func WithMaxLinkDepth(n int) OpenOption {
	return func(o *openOptions) {
		if n > 0 && n <= MaxLinkDepth {
			o.maxLinkDepth = n
		}
	}
}

// WithExternalLinks controls whether external links are followed into other
// files. When disabled they resolve with ErrUnsupported.
func WithExternalLinks(follow bool) OpenOption {
	return func(o *openOptions) {
		o.followExternal = follow
	}
}
