// Package extractors turns uploaded files into text. Each sub-package
// handles one format; Registry selects one by file extension and checks
// the sniffed content type before handing the bytes over.
package extractors
