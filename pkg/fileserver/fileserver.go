// Package fileserver adapts file systems for http.FileServer.
package fileserver

import (
	"net/http"
	"os"
)

// FilesOnly reports directories as missing, so http.FileServer never
// renders a listing and only exact file paths resolve.
func FilesOnly(fs http.FileSystem) http.FileSystem {
	return filesOnly{fs: fs}
}

type filesOnly struct {
	fs http.FileSystem
}

func (f filesOnly) Open(name string) (http.File, error) {
	file, err := f.fs.Open(name)
	if err != nil {
		return nil, err
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if info.IsDir() {
		file.Close()
		return nil, os.ErrNotExist
	}

	return file, nil
}
