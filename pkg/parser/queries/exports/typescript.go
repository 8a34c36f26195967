package exports

// TSQueries matches the export statements directly under the program node.
// Nested statements (namespaces, declare module blocks) are not part of a
// unit's public surface and are left out.
//
// Captures:
//   - @export.statement - the whole export_statement
const TSQueries = `
; export function Button(props: Props) { ... }
; export default class extends Component<Props> { ... }
; export const Card = (props: Props) => ...
; export { Card, Card as default }
(program
  (export_statement) @export.statement)
`
