package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/robert-malhotra/h5view/hdf5"
	"github.com/robert-malhotra/h5view/internal/meta"
)

// listing is one object of an ls run.
type listing struct {
	Path    string   `yaml:"path"`
	Kind    string   `yaml:"kind"`
	Link    string   `yaml:"link,omitempty"`
	Shape   []uint64 `yaml:"shape,omitempty"`
	Type    string   `yaml:"type,omitempty"`
	Chunks  []uint64 `yaml:"chunks,omitempty"`
	Size    string   `yaml:"size,omitempty"`
	Storage string   `yaml:"storage,omitempty"`
	Image   string   `yaml:"image,omitempty"`
	Error   string   `yaml:"error,omitempty"`
}

func newListCmd() *cobra.Command {
	var asYAML bool
	cmd := &cobra.Command{
		Use:   "ls <file> [path | path@attr]",
		Short: "Print the tree below a path, or one attribute value",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := hdf5.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			root := "/"
			if len(args) == 2 {
				root = args[1]
			}
			out := cmd.OutOrStdout()
			if strings.Contains(root, "@") {
				return printAttr(out, f, root)
			}
			entries, err := list(f, root)
			if err != nil {
				return err
			}
			if asYAML {
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				defer enc.Close()
				return enc.Encode(entries)
			}
			writeListing(out, entries)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "Print metadata as YAML")
	return cmd
}

func printAttr(w io.Writer, f *hdf5.File, path string) error {
	a, err := f.GetAttr(path)
	if err != nil {
		return err
	}
	v, err := a.Value()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, meta.FormatValue(v))
	return err
}

// list walks the hierarchy below root. A dataset root lists only itself.
// Broken links are listed with their error.
func list(f *hdf5.File, root string) ([]listing, error) {
	obj, err := f.Object(root)
	if err != nil {
		return nil, err
	}
	if ds, ok := obj.(*hdf5.Dataset); ok {
		return []listing{describe(ds.Path(), hdf5.LinkHard, ds)}, nil
	}
	g, ok := obj.(*hdf5.Group)
	if !ok {
		return nil, fmt.Errorf("%s: %w", root, hdf5.ErrUnsupported)
	}

	var entries []listing
	err = hdf5.Walk(g, func(path string, kind hdf5.LinkKind, obj interface{}, err error) error {
		if err != nil {
			entries = append(entries, listing{Path: path, Kind: "broken", Link: kind.String(), Error: err.Error()})
			return nil
		}
		switch o := obj.(type) {
		case *hdf5.Group:
			entries = append(entries, listing{Path: path, Kind: meta.Container.String(), Link: kind.String()})
		case *hdf5.Dataset:
			entries = append(entries, describe(path, kind, o))
		}
		return nil
	})
	return entries, err
}

func describe(path string, kind hdf5.LinkKind, ds *hdf5.Dataset) listing {
	l := listing{Path: path, Kind: meta.Leaf.String(), Link: kind.String()}
	m, err := meta.Describe(ds)
	if err != nil {
		l.Error = err.Error()
		return l
	}
	l.Shape = m.Shape
	l.Type = m.TypeName
	l.Chunks = m.Chunks
	l.Size = m.SizeString()
	if m.StorageBytes > 0 {
		l.Storage = meta.FormatBytes(m.StorageBytes)
	}
	if m.Image != nil {
		l.Image = m.Image.Type.String()
	}
	return l
}

func writeListing(w io.Writer, entries []listing) {
	for _, e := range entries {
		switch {
		case e.Error != "":
			fmt.Fprintf(w, "%s  [%s] %s\n", e.Path, e.Link, e.Error)
		case e.Kind == meta.Leaf.String():
			fmt.Fprintf(w, "%s  %s %s", e.Path, e.Type, formatShape(e.Shape))
			if e.Image != "" {
				fmt.Fprintf(w, " image=%s", e.Image)
			}
			fmt.Fprintln(w)
		default:
			fmt.Fprintf(w, "%s/\n", strings.TrimSuffix(e.Path, "/"))
		}
	}
}

func formatShape(shape []uint64) string {
	parts := make([]string, len(shape))
	for i, d := range shape {
		parts[i] = fmt.Sprint(d)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
