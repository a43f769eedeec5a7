package mcpserver

// MarkupContract describes the SmartTools markup and note layout that LLM
// consumers must produce.
const MarkupContract = `# SmartScribe Markup Contract

Notes are plain text with Epic SmartTools markup. Anything not listed here
is copied into the chart verbatim.

## Markup

| Form | Meaning |
|------|---------|
| ` + "`@NAME@`" + ` | SmartLink. Never leave these in a finished note; write ` + "`.NAME`" + ` instead. |
| ` + "`.NAME`" + ` | DotPhrase. Epic expands it when the note is signed. |
| ` + "`***`" + ` | Wildcard. Exactly three asterisks, replaced by free text. |
| ` + "`{Label:1234}`" + ` | Unselected SmartList. Must be resolved before signing. |
| ` + "`{Label:1234:: \"value\"}`" + ` | Selected SmartList. ` + "`value`" + ` must be one of the list's options. |

Use the ` + "`get_smartlist`" + ` tool to see the allowed options of a list.
Selections outside that set are rejected.

## Note layout

1. Each section starts with its header alone on a line, e.g. ` + "`History of Present Illness:`" + `.
2. Sections appear in template order and at most once.
3. No bullet or numbered lists before the Plan section.
4. The Formulation has exactly four paragraphs: identification and
   presentation, diagnosis with biopsychosocial factors, differential, and
   an opening sentence for treatment.
5. The Plan is split into Medications, Psychotherapy Referral, Therapy
   Conducted and Follow-up blocks.
6. The signing clinician's line closes the Plan and is the last line of
   the note.

Call ` + "`validate_note`" + ` on every draft. A note with errors is not
ready to sign.
`
