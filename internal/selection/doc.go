// Package selection groups records by content identity and decides which
// copy in each group is canonical.
//
// Within a group of records sharing (hash, content type) the member with the
// oldest modification time is primary. Ties go to the storage root with the
// lowest priority number, then to the lexically greatest full path. The last
// rule only exists to make the order total. Every other member is redundant.
//
// On top of the grouping the Engine implements the record-file operations:
// select, prune, purge, clean, view, summary, intersect, split, and
// validate. Operations that delete or rewrite files only preview their
// effect unless forced, and mutating operations stop at the first failed
// copy or delete.
package selection
