package declarations

// JSQueries is the JavaScript counterpart of TSQueries. Class names are
// plain identifiers in the JavaScript grammar.
const JSQueries = `
(program
  (function_declaration
    name: (identifier) @function.name) @function.definition)

(program
  (lexical_declaration
    (variable_declarator
      name: (identifier) @variable.name) @variable.definition))

(program
  (variable_declaration
    (variable_declarator
      name: (identifier) @variable.name) @variable.definition))

(program
  (class_declaration
    name: (identifier) @class.name) @class.definition)
`
