/*Package interval implements containment queries over sets of genomic
  intervals, as found in BED files.
  Unlike an interval-union, every interval is tracked separately: a Tree
  answers "which stored intervals lie entirely inside [l, r)" for one
  chromosome, and is immutable once built.
  It assumes every position fits in a PosType, which is currently defined as
  int32 since that's what BAM files are limited to.
*/
package interval
