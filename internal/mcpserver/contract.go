package mcpserver

// NoteFormat describes how notes are stored and linked. It is served to
// clients before they create or update notes.
const NoteFormat = `# NoteWiki Note Format

Notes live in one JSON file: a top-level array with one object per note.

` + "```" + `json
[
  {
    "title": "Weekly standup",
    "content": "Free-form text, any length.",
    "tags": ["meetings", "project-x"]
  }
]
` + "```" + `

## Rules

1. **title** is required, non-empty and unique. It is how other notes refer to this one.
2. **content** is plain text and may be empty.
3. **tags** are the titles of parent notes. A title that does not exist yet is
   created as an empty note, so forward references are fine.
4. **kids** are never stored. A note's kids are exactly the notes that tag it;
   giving a note kids adds the note to each kid's tags.
5. A note may tag itself; it then appears among its own kids.
6. Notes tagged ` + "`" + `default` + "`" + ` are listed when the app starts.

## Tools

- In tool arguments, tags and kids are one string of titles separated by
  spaces or commas. They are sorted and de-duplicated, so order is not kept
  and a title cannot contain a space or a comma there.
- Notes can be addressed by title or by the numeric id shown by list_notes.
  Ids are only stable until the file is reloaded.
`
