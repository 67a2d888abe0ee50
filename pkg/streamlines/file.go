package streamlines

import (
	"fmt"
	"io"
	"os"

	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"

	"bssplot/internal/models"
)

// Load reads streamlines from a YAML file holding a list of streamlines,
// each a list of [x, y, z] points.
func Load(path string) ([]models.Streamline, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	out, err := Decode(file)
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}
	return out, nil
}

// Decode reads streamlines in the format written by Encode.
func Decode(r io.Reader) ([]models.Streamline, error) {
	var raw [][][]float64
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil && err != io.EOF {
		return nil, fmt.Errorf("error parsing streamlines: %w", err)
	}
	out := make([]models.Streamline, len(raw))
	for i, pts := range raw {
		s := make(models.Streamline, len(pts))
		for j, p := range pts {
			if len(p) != 3 {
				return nil, fmt.Errorf("streamline %d point %d has %d coordinates, want 3", i, j, len(p))
			}
			s[j] = r3.Vec{X: p[0], Y: p[1], Z: p[2]}
		}
		out[i] = s
	}
	return out, nil
}

// Encode writes streamlines as YAML, one flow-style point per line.
func Encode(w io.Writer, streamlines []models.Streamline) error {
	doc := &yaml.Node{Kind: yaml.SequenceNode}
	for _, s := range streamlines {
		sn := &yaml.Node{Kind: yaml.SequenceNode}
		for _, p := range s {
			pn := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
			for _, v := range []float64{p.X, p.Y, p.Z} {
				var n yaml.Node
				if err := n.Encode(v); err != nil {
					return err
				}
				pn.Content = append(pn.Content, &n)
			}
			sn.Content = append(sn.Content, pn)
		}
		doc.Content = append(doc.Content, sn)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}
