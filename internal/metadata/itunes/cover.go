package itunes

import "regexp"

// CoverSize is the artwork size requested from iTunes. iTunes serves the
// largest size it has up to this.
const CoverSize = "600x600bb.jpg"

// sizePattern matches iTunes artwork size suffixes like "100x100bb.jpg".
var sizePattern = regexp.MustCompile(`/\d+x\d+bb\.(jpg|png)$`)

// ScaledCoverURL rewrites an artwork URL to request CoverSize.
func ScaledCoverURL(url string) string {
	if url == "" {
		return ""
	}
	return sizePattern.ReplaceAllString(url, "/"+CoverSize)
}
