package mcpserver

// BlockMarkupGuide describes the block markup the post command understands.
const BlockMarkupGuide = `# Block Markup for Threads

A thread is one root block followed by its direct children, in order. Each
block becomes one post. Empty children are skipped.

## Markup

| Markup                     | Posted as                                       |
|----------------------------|-------------------------------------------------|
| ` + "`" + `[[Page Name]]` + "`" + `            | hashtag ` + "`" + `#PageName` + "`" + ` (whitespace removed)             |
| ` + "`" + `((blockuid1))` + "`" + `            | the referenced block's text, not expanded again |
| ` + "`" + `[label](https://x.io)` + "`" + `    | the bare URL, linked                            |
| ` + "`" + `![alt](https://x.io/a.png)` + "`" + ` | removed from the text, attached as an image     |
| ` + "`" + `@handle.bsky.social` + "`" + `      | a mention, if the handle resolves               |

## Limits

- 300 characters per post, counted after markup is resolved.
- At most 4 images per post, 1 MB each.
- Dropbox share links are rewritten to direct downloads.

Use ` + "`" + `preview_thread` + "`" + ` to check a thread before ` + "`" + `post_to_bluesky` + "`" + `.
`
