package declarations

// TSQueries matches the top-level value declarations that an export clause
// or a default export identifier can refer to.
//
// Captures:
//   - @<kind>.name - the declared name
//   - @<kind>.definition - the declaration node
const TSQueries = `
; function Button(props: Props) { ... }
(program
  (function_declaration
    name: (identifier) @function.name) @function.definition)

; const Button = (props: Props) => ...
(program
  (lexical_declaration
    (variable_declarator
      name: (identifier) @variable.name) @variable.definition))

; var Button = function (props) { ... }
(program
  (variable_declaration
    (variable_declarator
      name: (identifier) @variable.name) @variable.definition))

; class Button extends Component<Props> { ... }
(program
  (class_declaration
    name: (type_identifier) @class.name) @class.definition)

(program
  (abstract_class_declaration
    name: (type_identifier) @class.name) @class.definition)
`
