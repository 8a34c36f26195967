package exports

// JSQueries is the JavaScript counterpart of TSQueries. The pattern is the
// same; it is compiled against the JavaScript grammar.
const JSQueries = `
(program
  (export_statement) @export.statement)
`
