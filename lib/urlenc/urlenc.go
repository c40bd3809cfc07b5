// Package urlenc encodes and decodes compressed draw.io diagram payloads.
//
// draw.io stores a compressed page as base64(deflateRaw(encodeURIComponent(xml))).
package urlenc

import (
	"bytes"
	"compress/flate"
	"encoding/base64"
	"io"
	"net/url"
	"strings"

	"oss.terrastruct.com/xdefer"
)

// Encode compresses raw diagram XML the way draw.io does when saving compressed files.
func Encode(raw string) (_ string, err error) {
	defer xdefer.Errorf(&err, "failed to encode diagram")

	b := &bytes.Buffer{}

	zw, err := flate.NewWriter(b, flate.BestCompression)
	if err != nil {
		return "", err
	}
	escaped := strings.ReplaceAll(url.QueryEscape(raw), "+", "%20")
	if _, err := io.Copy(zw, strings.NewReader(escaped)); err != nil {
		return "", err
	}
	if err := zw.Close(); err != nil {
		return "", err
	}

	return base64.StdEncoding.EncodeToString(b.Bytes()), nil
}

// Decode decompresses a draw.io page payload back into its XML.
func Decode(encoded string) (_ string, err error) {
	defer xdefer.Errorf(&err, "failed to decode diagram")

	b64Decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return "", err
	}

	zr := flate.NewReader(bytes.NewReader(b64Decoded))
	var b bytes.Buffer
	if _, err := io.Copy(&b, zr); err != nil {
		return "", err
	}
	if err := zr.Close(); err != nil {
		return "", err
	}
	return url.PathUnescape(b.String())
}
