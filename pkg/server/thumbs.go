package server

import (
	"image"
	"image/png"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"golang.org/x/image/draw"

	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/webp"
)

// thumb serves a game's cover image, downscaled server-side when the
// client passes ?w= so list grids don't pull full-size art.
func (s *Server) thumb(w http.ResponseWriter, r *http.Request) {
	desc, err := s.library.Find(r.PathValue("type"), r.PathValue("id"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, "unknown game")
		return
	}
	path := firstImage(desc.ThumbDir())
	if path == "" {
		s.writeError(w, http.StatusNotFound, "no thumbnail")
		return
	}

	width, _ := strconv.Atoi(r.URL.Query().Get("w"))
	if width <= 0 {
		http.ServeFile(w, r, path)
		return
	}

	f, err := os.Open(path)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "no thumbnail")
		return
	}
	defer func() { _ = f.Close() }()

	src, _, err := image.Decode(f)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "unreadable thumbnail")
		return
	}
	b := src.Bounds()
	if width >= b.Dx() {
		http.ServeFile(w, r, path)
		return
	}
	height := b.Dy() * width / b.Dx()
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if err := png.Encode(w, dst); err != nil {
		s.log.Error().Err(err).Msg("Thumbnail write failed")
	}
}

func firstImage(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".png", ".jpg", ".jpeg", ".gif", ".webp":
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return ""
	}
	sort.Strings(names)
	return filepath.Join(dir, names[0])
}
