package instagram

// MediaType is the closed set of post classifications the web api can
// return. adding a new type means extending this enum and the switch
// in String; ParseMediaType and classifyMedia will then pick it up.
type MediaType int

const (
	MediaUnknown MediaType = iota
	MediaPhoto
	MediaVideo
	MediaReel
	MediaIGTV
	MediaAlbum
)

func (t MediaType) String() string {
	switch t {
	case MediaPhoto:
		return "photo"
	case MediaVideo:
		return "video"
	case MediaReel:
		return "reel"
	case MediaIGTV:
		return "igtv"
	case MediaAlbum:
		return "album"
	case MediaUnknown:
		return "unknown"
	}
	return "unknown"
}

// ParseMediaType maps the human-readable name back to the enum, used
// for the allowed_media_types config entries.
func ParseMediaType(name string) (MediaType, bool) {
	switch name {
	case "photo":
		return MediaPhoto, true
	case "video":
		return MediaVideo, true
	case "reel":
		return MediaReel, true
	case "igtv":
		return MediaIGTV, true
	case "album":
		return MediaAlbum, true
	}
	return MediaUnknown, false
}

// wire codes: media_type 1 is a photo, 2 is some kind of video further
// split by product_type, 8 is an album/carousel.
func classifyMedia(mediaType int, productType string) MediaType {
	switch mediaType {
	case 1:
		return MediaPhoto
	case 2:
		switch productType {
		case "igtv":
			return MediaIGTV
		case "clips":
			return MediaReel
		default:
			return MediaVideo
		}
	case 8:
		return MediaAlbum
	}
	return MediaUnknown
}

// Media is one post as returned by the feed endpoint.
type Media struct {
	// platform-assigned stable id (the "pk"), used for dedup and
	// for the comment endpoint
	ID string
	// human-visible shortcode, what appears in post urls
	Code string
	// creation time, unix seconds
	TakenAt int64
	Type    MediaType
}
