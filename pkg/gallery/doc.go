// Package gallery manages the on-disk storage for one gallery's pages.
//
// Every gallery gets a Storage instance reconciling two tiers under one
// mode switch:
//
//   - Read mode: pages live in the shared blob cache; galleries that were
//     downloaded earlier remain readable from their permanent directory.
//   - Download mode: pages persist in a per-gallery permanent directory
//     under the download root, named "<id>-<sanitized title>", one file
//     per page as "<8-digit 1-based index>.<ext>".
//
// Switching to Download mode is explicit and one-way. While in Download
// mode a presence check implicitly promotes pages that exist only in the
// cache, copying them into the permanent directory under an extension
// sniffed from the blob's magic bytes.
//
// Permanent writes are guarded by a free-space preflight (payload plus a
// fixed margin); refusals surface as boolean failures the caller can show
// to the user, never as crashes.
//
// Usage:
//
//	st := gallery.NewStorage(cache, downloadRoot, 288945, "Example Gallery", log)
//	if err := st.SetMode(gallery.ModeDownload); err != nil {
//	    return err
//	}
//	if !st.Contains(1) {
//	    data := fetchPage(1)
//	    st.Write(data, 1, ".jpg")
//	}
package gallery
