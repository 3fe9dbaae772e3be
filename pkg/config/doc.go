/*
Package config loads buildfs task files.

	            +-------------+
	            |   Config    |
	            |   (Tasks)   |
	            +------+------+
	                   |
	      +------------+------------+
	      |            |            |
	+-----+----+ +-----+----+ +-----+----+
	|   YAML   | |   JSON   | |   HCL    |
	|  Parser  | |  Parser  | |  Parser  |
	+----------+ +----------+ +----------+

🎯 Purpose:
- Describes copy, prepare and mirror tasks by name
- Picks a parser by file extension
- Validates tasks and normalizes local paths

🔄 Flow:
1. Reads the task file through an afero filesystem
2. Parses format-specific syntax
3. Validates each task and fills in defaults
4. Hands resolved locations to the CLI

📍 Locations:
Every path is a ref naming one domain:

	source:
	  execution: /build/out
	target:
	  local: ~/artifacts

Local paths may start with ~ and may be relative to the task file.
Execution paths are always absolute.

🔍 Example:

	cfg, err := config.Load(ctx, afero.NewOsFs(), ".buildfs.yaml")
	if err != nil {
		return err
	}
	tasks, err := cfg.Select("assets")
*/
package config
