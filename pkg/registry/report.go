/*
Copyright 2025 The rime-sim Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package registry

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// FormatBytes renders a byte count with a binary unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%cB", float64(n)/float64(div), "KMGTPE"[exp])
}

func yesNo(v bool) string {
	if v {
		return "Y"
	}
	return "N"
}

// Report writes a textual summary of every registered array and property.
// The output is for diagnostics only, not a machine-parsed format.
func (r *Registry) Report(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "Registered Arrays")
	fmt.Fprintln(tw, "Array Name\tSize\tType\tHost\tDevice\tShape")
	for _, name := range r.order {
		rec := r.arrays[name].record
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			rec.Name,
			FormatBytes(rec.Bytes()),
			rec.Dtype,
			yesNo(rec.HasHost),
			yesNo(rec.HasDevice),
			rec.SymbolicShape)
	}

	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "Registered Properties")
	fmt.Fprintln(tw, "Property Name\tType\tValue\tDefault Value")
	for _, name := range r.porder {
		p := r.props[name]
		fmt.Fprintf(tw, "%s\t%s\t%v\t%v\n",
			p.record.Name, p.record.Dtype, p.value, p.record.Default)
	}

	return tw.Flush()
}
