package config

import (
	"errors"
	"io"
	"os"
	"path/filepath"
)

// defaultYAML seeds a fresh data dir when no packaged default config exists.
// Sources are examples; real deployments overwrite them via PUT /config.
const defaultYAML = `app:
  port: 38512
  data_dir: .

outbound:
  req_per_sec: 1.0
  burst: 2
  fetch_timeout_seconds: 20

counties:
  - Maricopa
  - Pima
  - Pinal

sources:
  - name: maricopa-parcels
    kind: parcel
    endpoint: https://gis.example.gov/arcgis/rest/services/Parcels/FeatureServer/0
    fields:
      parcel: APN
      owner: OWNER_NAME
      situs: PHYSICAL_ADDRESS
      city: PHYSICAL_CITY
      zip: PHYSICAL_ZIP
    out_fields: [APN, OWNER_NAME, PHYSICAL_ADDRESS, PHYSICAL_CITY, PHYSICAL_ZIP]
  - name: county-notices
    kind: notices
    search_url: https://notices.example.com/search?q=%s
    base_url: https://notices.example.com
`

// EnsureUserConfig makes sure <dataDir>/config.yml exists: copy the packaged
// default if there is one, otherwise write the built-in seed.
func EnsureUserConfig(dataDir string, defaultPath string) (string, error) {
	userPath := filepath.Join(dataDir, "config.yml")

	_, err := os.Stat(userPath)
	if err == nil {
		return userPath, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	src, err := os.Open(defaultPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if werr := os.WriteFile(userPath, []byte(defaultYAML), 0o644); werr != nil {
				return "", werr
			}
			return userPath, nil
		}
		return "", err
	}
	defer src.Close()

	dst, err := os.Create(userPath)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", err
	}
	return userPath, nil
}
