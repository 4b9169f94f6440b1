// Package luadep walks a parsed flow file and collects its dependencies on
// other flows: every `require("path")` call, wherever it appears in the
// tree, yields a directed edge from the requiring flow to the required one.
// Edges are deduplicated per pair and require paths are normalized relative
// to the requiring file so the same flow always interns to one graph node.
package luadep
