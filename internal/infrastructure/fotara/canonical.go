package fotara

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"regexp"
	"strings"

	"github.com/beevik/etree"
	"github.com/ucarion/c14n"
)

var (
	lineBreaks = regexp.MustCompile(`[\r\n\t]+`)
	interTag   = regexp.MustCompile(`>\s+<`)
	xmlDecl    = regexp.MustCompile(`^<\?xml[^?]*\?>`)
)

// Canonicalize colapsa saltos de línea y tabuladores en un espacio y elimina todo
// espacio entre etiquetas adyacentes. Aplicarla sobre un texto ya canónico no lo cambia.
func Canonicalize(doc string) string {
	doc = lineBreaks.ReplaceAllString(doc, " ")
	doc = interTag.ReplaceAllString(doc, "><")
	return strings.TrimSpace(doc)
}

// Pretty re-indenta un documento canónico para inspección humana. No se envía nunca.
func Pretty(doc string) (string, error) {
	d := etree.NewDocument()
	d.WriteSettings = writeSettings
	if err := d.ReadFromString(doc); err != nil {
		return "", fmt.Errorf("fotara: parsear documento: %w", err)
	}
	d.Indent(2)
	return d.WriteToString()
}

// Digest devuelve el sha256 hex de la forma canónica C14N del documento (sin declaración XML).
func Digest(doc string) (string, error) {
	body := xmlDecl.ReplaceAllString(doc, "")
	dec := xml.NewDecoder(bytes.NewReader([]byte(body)))
	dec.Entity = map[string]string{}
	out, err := c14n.Canonicalize(dec)
	if err != nil {
		return "", fmt.Errorf("fotara: c14n: %w", err)
	}
	sum := sha256.Sum256(out)
	return hex.EncodeToString(sum[:]), nil
}
