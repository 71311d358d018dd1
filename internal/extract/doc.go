// Package extract builds and sequences the external tool calls that turn
// ROIs, anatomy, and tractography into an extracted streamline bundle.
//
// Ownership boundary:
// - ROI merge, dilation, and GMWMI intersection
//
// - 5TT and GMWMI generation
//
// - tck2connectome / connectome2tck extraction
//
// Every artifact is named outpath_base + fixed suffix with no separator;
// callers own prefix uniqueness. Nothing here retains state between calls.
package extract
