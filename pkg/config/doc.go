/*
Package config loads patchset files for patchrc.

	            +-------------+
	            |  Patchset   |
	            |   (file)    |
	            +------+------+
	                   |
	      +------------+------------+
	      |            |            |
	+-----+----+ +-----+----+ +-----+----+
	|   YAML   | |   JSON   | |   HCL    |
	|  Parser  | |  Parser  | |  Parser  |
	+----------+ +----------+ +----------+

🎯 Purpose:
- Picks a parser from the file extension
- Rejects unknown fields
- Resolves find_file/replace_file bodies relative to the patchset
- Turns start/alt_start/end entries into block steps
- Builds the ordered patch.Set the engine consumes

📝 Notes:
HCL templates interpolate "${...}", so bodies containing JavaScript template
literals should come from find_file/replace_file or the file() function.
HCL also normalizes string values to NFC; use file references when the
document is not already in that form.

🔍 Example:

	cfg, err := config.Load(ctx, "timeline.patch.yaml")
	if err != nil {
		return err
	}
	set, err := cfg.Build()
	if err != nil {
		return err
	}
	policy, _ := cfg.DefaultPolicy()
*/
package config
