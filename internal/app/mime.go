package app

import (
	"log"
	"mime"
)

func init() {
	ensureMimeType(".webp", "image/webp")
	ensureMimeType(".jpg", "image/jpeg")
	ensureMimeType(".jpeg", "image/jpeg")
	ensureMimeType(".png", "image/png")
	ensureMimeType(".gif", "image/gif")
}

func ensureMimeType(ext, typ string) {
	if mime.TypeByExtension(ext) != "" {
		return
	}
	if err := mime.AddExtensionType(ext, typ); err != nil {
		log.Printf("app: failed to register MIME type for %s: %v", ext, err)
	}
}
