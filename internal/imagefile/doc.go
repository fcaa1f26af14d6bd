// Package imagefile reads and writes raster images for squarezoom.
//
// A [Raster] is a row-major buffer of packed 0xAARRGGBB pixels. A [Codec]
// converts between a Raster and a byte stream. Exactly one codec backend
// is compiled into a binary:
//
//   - the default library backend decodes PNG, JPEG, GIF, BMP, TIFF and
//     WebP, and encodes all of those except WebP;
//   - building with the pamonly tag selects a small Netpbm PAM reader and
//     writer that accepts 8-bit RGB images without alpha.
//
// Callers obtain the backend with [New] and never branch on which one it is:
//
//	codec := imagefile.New()
//	img, err := codec.Load(path, f)
//	if err != nil {
//		return err
//	}
//	defer img.Release()
package imagefile
